package source

import (
	"github.com/banshee-data/irtrace/internal/pulse"
)

// SampleRecorder persists samples as they are read.
type SampleRecorder interface {
	Record(pulse.Sample) error
}

// recordingSource copies every sample it reads into a recorder.
type recordingSource struct {
	Source
	rec SampleRecorder
}

// Record wraps src so every sample it delivers is also written to rec. A
// recording failure is returned in place of the sample.
func Record(src Source, rec SampleRecorder) Source {
	return &recordingSource{Source: src, rec: rec}
}

func (r *recordingSource) ReadSample() (pulse.Sample, error) {
	s, err := r.Source.ReadSample()
	if err != nil {
		return s, err
	}
	if err := r.rec.Record(s); err != nil {
		return pulse.Sample{}, err
	}
	return s, nil
}

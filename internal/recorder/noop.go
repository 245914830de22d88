package recorder

// NoopRecorder is used when no journal database is configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordCheck(_ *CheckEvent) error { return nil }
func (n *NoopRecorder) RecordRun(_ *RunEvent) error     { return nil }
func (n *NoopRecorder) Close() error                    { return nil }

package persistence

// Recorder composes the append log and the snapshotter behind the one
// interface pkg/command.Dispatcher expects for AOFAppender: every
// successful write both lands in the log and counts toward the
// snapshot threshold. Either collaborator may be nil (persistence
// disabled independently per spec.md §6's `aof`/`rdb` config flags).
type Recorder struct {
	Log  *Log
	Snap *Snapshotter
}

// Append implements command.AOFAppender.
func (r *Recorder) Append(tokens []string) error {
	if r.Snap != nil {
		r.Snap.RecordWrite()
	}
	if r.Log == nil {
		return nil
	}
	return r.Log.Append(tokens)
}

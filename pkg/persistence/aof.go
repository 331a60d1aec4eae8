package persistence

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/cuemby/keyd/pkg/session"
)

// Executor replays one already-tokenized command. *command.Dispatcher
// satisfies this structurally; persistence never imports pkg/command, so
// the two packages have no dependency on each other in either direction
// (pkg/command's own AOFAppender interface is the mirror image of this).
type Executor interface {
	Execute(sess *session.Session, tokens []string) (reply string, closeConn bool)
}

// Log is the append-only command log: one textual command per line,
// tokens space-joined, fsync'd after every write (spec.md §5 "the
// append-log file is protected by a mutex around each line write").
type Log struct {
	mu   sync.Mutex
	file *os.File
	path string
}

// OpenLog opens (creating if absent) the append-log file at path in
// append mode.
func OpenLog(path string) (*Log, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("open append log at %s: %w", path, err)
	}
	return &Log{file: f, path: path}, nil
}

// Append writes one command as a space-joined line and fsyncs it before
// returning. Tokens are assumed not to contain whitespace (spec.md §9,
// a documented current limitation of the whitespace-delimited format).
func (l *Log) Append(tokens []string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	line := strings.Join(tokens, " ") + "\n"
	if _, err := l.file.WriteString(line); err != nil {
		return fmt.Errorf("write append-log line: %w", err)
	}
	return l.file.Sync()
}

// Sync fsyncs the log file, used on graceful shutdown (spec.md §5
// "A shutdown signal ... fsyncs the append log").
func (l *Log) Sync() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Sync()
}

// Close fsyncs and closes the underlying file.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	_ = l.file.Sync()
	return l.file.Close()
}

// Truncate empties the log file in place, used after a durable snapshot
// makes the log's history redundant (spec.md §4.7: "Implementations may
// additionally offer log truncation after a successful snapshot, but
// must not truncate if the snapshot is not fully durable").
func (l *Log) Truncate() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.file.Truncate(0); err != nil {
		return fmt.Errorf("truncate append log: %w", err)
	}
	_, err := l.file.Seek(0, 0)
	return err
}

// Replay re-dispatches every line of the log file at path as a
// non-transactional command, in file order, before the server accepts
// connections (spec.md §4.7). A missing file is not an error: it just
// means nothing to replay. Replay uses one throwaway session, since the
// log by construction never contains MULTI/WATCH control verbs (only
// successful writes are ever appended, per spec.md §4.6).
func Replay(path string, exec Executor) (int, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("open append log for replay at %s: %w", path, err)
	}
	defer f.Close()

	sess := session.New()
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	replayed := 0
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		tokens := strings.Fields(line)
		if _, closeConn := exec.Execute(sess, tokens); closeConn {
			sess = session.New()
		}
		replayed++
	}
	if err := scanner.Err(); err != nil {
		return replayed, fmt.Errorf("read append log at %s: %w", path, err)
	}
	return replayed, nil
}

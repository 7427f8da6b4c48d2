package engine

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrEngineClosed is returned when the engine process has gone away
var ErrEngineClosed = errors.New("engine closed")

// Analysis is the engine's answer for one position
type Analysis struct {
	BestMove string // long algebraic, e.g. "e2e4"
	ScoreCP  int    // centipawns from the side to move
	Mate     int    // moves to mate, signed; zero when not a mate score
	HasScore bool
}

// UCIEngine represents a UCI-compatible chess engine
type UCIEngine struct {
	ID uuid.UUID

	cmd *exec.Cmd

	stdinPipe io.WriteCloser
	reader    *bufio.Reader

	mutex     sync.Mutex // serializes writes
	searching sync.Mutex // one search at a time
	closeOnce sync.Once
	quitChan  chan struct{}
	lines     chan string

	logger *zap.Logger
}

// NewUCIEngine starts the engine process and returns a UCIEngine instance.
// enginePath is the path to the engine executable (e.g. "stockfish")
func NewUCIEngine(enginePath string, logger *zap.Logger) (*UCIEngine, error) {
	cmd := exec.Command(enginePath)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("StdoutPipe error: %w", err)
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("StdinPipe error: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("error starting engine: %w", err)
	}

	e := newEngine(stdin, stdout, logger)
	e.cmd = cmd

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.handshake(ctx); err != nil {
		_ = e.Close()
		return nil, err
	}

	return e, nil
}

// Attach speaks UCI over already open pipes, e.g. to an engine behind a
// socket, and completes the handshake before returning.
func Attach(ctx context.Context, stdin io.WriteCloser, stdout io.Reader, logger *zap.Logger) (*UCIEngine, error) {
	e := newEngine(stdin, stdout, logger)
	if err := e.handshake(ctx); err != nil {
		_ = e.Close()
		return nil, err
	}

	return e, nil
}

func newEngine(stdin io.WriteCloser, stdout io.Reader, logger *zap.Logger) *UCIEngine {
	e := &UCIEngine{
		ID:        uuid.New(),
		stdinPipe: stdin,
		reader:    bufio.NewReader(stdout),
		quitChan:  make(chan struct{}),
		lines:     make(chan string, 64),
		logger:    logger,
	}

	go e.readLoop()

	return e
}

func (e *UCIEngine) readLoop() {
	defer close(e.lines)

	for {
		line, err := e.reader.ReadString('\n')
		if err != nil {
			if err != io.EOF {
				e.logger.Warn("error reading engine output", zap.Error(err))
			}
			return
		}

		line = strings.TrimSpace(line)
		e.logger.Debug("engine output", zap.String("engine_id", e.ID.String()), zap.String("line", line))

		select {
		case e.lines <- line:
		case <-e.quitChan:
			return
		}
	}
}

// handshake switches the engine to UCI mode and waits until it is ready
func (e *UCIEngine) handshake(ctx context.Context) error {
	if err := e.writeCommand("uci"); err != nil {
		return fmt.Errorf("error sending uci cmd: %w", err)
	}
	if _, err := e.waitFor(ctx, "uciok"); err != nil {
		return err
	}

	return e.sync(ctx)
}

// sync drains any stale output until the engine answers isready
func (e *UCIEngine) sync(ctx context.Context) error {
	if err := e.writeCommand("isready"); err != nil {
		return err
	}
	_, err := e.waitFor(ctx, "readyok")
	return err
}

// waitFor reads lines until one starts with prefix
func (e *UCIEngine) waitFor(ctx context.Context, prefix string) ([]string, error) {
	var seen []string
	for {
		select {
		case <-ctx.Done():
			return seen, ctx.Err()
		case line, ok := <-e.lines:
			if !ok {
				return seen, ErrEngineClosed
			}
			seen = append(seen, line)
			if strings.HasPrefix(line, prefix) {
				return seen, nil
			}
		}
	}
}

// Analyze searches fen to the given depth within movetime and returns the best move
func (e *UCIEngine) Analyze(ctx context.Context, fen string, depth int, movetime time.Duration) (Analysis, error) {
	e.searching.Lock()
	defer e.searching.Unlock()

	if err := e.sync(ctx); err != nil {
		return Analysis{}, err
	}

	if err := e.writeCommand("position fen " + fen); err != nil {
		return Analysis{}, err
	}

	command := "go"
	if depth > 0 {
		command += fmt.Sprintf(" depth %d", depth)
	}
	if movetime > 0 {
		command += fmt.Sprintf(" movetime %d", movetime.Milliseconds())
	}
	if err := e.writeCommand(command); err != nil {
		return Analysis{}, err
	}

	lines, err := e.waitFor(ctx, "bestmove")
	if err != nil {
		// the next search resynchronizes past the stale bestmove
		_ = e.writeCommand("stop")
		return Analysis{}, err
	}

	return parseSearch(lines)
}

func parseSearch(lines []string) (Analysis, error) {
	var a Analysis
	for _, line := range lines {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "info":
			for i := 1; i+2 < len(fields); i++ {
				if fields[i] != "score" {
					continue
				}
				n, err := strconv.Atoi(fields[i+2])
				if err != nil {
					break
				}
				switch fields[i+1] {
				case "cp":
					a.ScoreCP, a.Mate, a.HasScore = n, 0, true
				case "mate":
					a.Mate, a.HasScore = n, true
				}
				break
			}
		case "bestmove":
			if len(fields) < 2 || fields[1] == "(none)" {
				return a, errors.New("engine returned no move")
			}
			a.BestMove = fields[1]
		}
	}

	if a.BestMove == "" {
		return a, errors.New("engine returned no move")
	}

	return a, nil
}

func (e *UCIEngine) writeCommand(cmd string) error {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	select {
	case <-e.quitChan:
		return ErrEngineClosed
	default:
	}

	_, err := io.WriteString(e.stdinPipe, cmd+"\n")
	return err
}

// SetOption sends a UCI setoption command
func (e *UCIEngine) SetOption(name, value string) error {
	return e.writeCommand(fmt.Sprintf("setoption name %s value %s", name, value))
}

// Close asks the engine to quit and waits for the process to exit
func (e *UCIEngine) Close() error {
	var err error
	e.closeOnce.Do(func() {
		_ = e.writeCommand("quit")
		close(e.quitChan)
		_ = e.stdinPipe.Close()
		if e.cmd != nil {
			err = e.cmd.Wait()
		}
	})
	return err
}

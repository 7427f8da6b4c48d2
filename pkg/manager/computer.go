package manager

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tecu23/arena-server/internal/color"
	"github.com/tecu23/arena-server/pkg/advisor"
	"github.com/tecu23/arena-server/pkg/board"
	"github.com/tecu23/arena-server/pkg/events"
	"github.com/tecu23/arena-server/pkg/game"
	"github.com/tecu23/arena-server/pkg/matchmaking"
	"github.com/tecu23/arena-server/pkg/messages"
	"github.com/tecu23/arena-server/pkg/player"
)

const computerIdentity = "computer"

// PlayComputer opens a room against the computer. When the human takes
// black the computer moves first.
func (m *Manager) PlayComputer(connID uuid.UUID, p messages.PlayComputerPayload) (messages.RoomCreatedPayload, error) {
	identity := p.Player.Identity
	if identity == "" {
		return messages.RoomCreatedPayload{}, ErrMissingIdentity
	}
	if m.registry.InSession(identity) {
		return messages.RoomCreatedPayload{}, ErrAlreadyInSession
	}

	human, err := m.humanColor(p.Color)
	if err != nil {
		return messages.RoomCreatedPayload{}, err
	}

	mode := matchmaking.Rapid
	if p.Options.Mode != "" {
		if mode, err = matchmaking.ParseMode(p.Options.Mode); err != nil {
			return messages.RoomCreatedPayload{}, err
		}
	}

	opts := game.ComputerOptions{
		Depth:         p.Options.Depth,
		ThinkingTime:  time.Duration(p.Options.ThinkingTime) * time.Millisecond,
		ShowWinBar:    p.Options.ShowWinBar,
		ShowBestMoves: p.Options.ShowBestMoves,
	}
	if opts.Depth <= 0 {
		opts.Depth = m.cfg.ComputerDepth
	}
	if opts.ThinkingTime <= 0 {
		opts.ThinkingTime = m.cfg.ComputerThinkTime
	}

	computerRating := p.Options.ComputerRating
	if computerRating <= 0 {
		computerRating = m.cfg.DefaultRating
	}

	seats := [2]game.Seat{
		{Player: p.Player, Color: human, ConnectionID: connID, Connected: true},
		{
			Player: player.Player{
				Identity:    computerIdentity,
				DisplayName: "Computer",
				Ratings:     map[string]int{string(mode): computerRating},
			},
			Color:    human.Opp(),
			Computer: true,
		},
	}

	s := game.New(game.Params{
		ID:              uuid.New(),
		Generation:      m.registry.NextGeneration(),
		Mode:            string(mode),
		Kind:            game.KindComputer,
		Seats:           seats,
		InitialDuration: mode.InitialDuration(),
		Board:           board.New(),
		Clock:           m.clock,
		DefaultRating:   m.cfg.DefaultRating,
		Computer:        opts,
	})
	m.registry.Save(s)

	// the player stops waiting for a human opponent
	if n := m.withdraw(identity, connID); n > 0 {
		m.logger.Debug("queue entries cancelled", zap.String("identity", identity), zap.Int("count", n))
	}

	m.logger.Info("computer game created",
		zap.String("room_id", s.ID.String()),
		zap.String("identity", identity),
		zap.String("color", string(human)),
		zap.Int("depth", opts.Depth),
	)

	m.begin(s)

	return messages.RoomCreatedPayload{RoomID: s.ID.String()}, nil
}

// RestartGame resets a computer game to the initial position. Replies still
// pending for the previous game are discarded.
func (m *Manager) RestartGame(connID uuid.UUID, p messages.RoomPayload) (messages.AckPayload, error) {
	s, _, err := m.seatedIn(connID, p.RoomID)
	if err != nil {
		return messages.AckPayload{}, err
	}

	if err := s.Restart(m.registry.NextGeneration()); err != nil {
		return messages.AckPayload{}, err
	}

	m.logger.Info("computer game restarted",
		zap.String("room_id", s.ID.String()),
		zap.Uint64("generation", s.Generation),
	)

	m.begin(s)

	return messages.AckPayload{Success: true}, nil
}

// RequestAdvice asks the advisory service about the room's position. The
// answer arrives as an advice event, with available=false on failure.
func (m *Manager) RequestAdvice(connID uuid.UUID, p messages.RoomPayload) (messages.AckPayload, error) {
	s, _, err := m.seatedIn(connID, p.RoomID)
	if err != nil {
		return messages.AckPayload{}, err
	}

	m.requestAdvice(s, true, true)

	return messages.AckPayload{Success: true, Message: "advice requested"}, nil
}

// begin activates a computer game and hands the first move to the computer
// when it plays white.
func (m *Manager) begin(s *game.Session) {
	s.Start()

	human := s.Seat(color.White)
	if human.Computer {
		human = s.Seat(color.Black)
	}

	m.publish(events.EventGameStart, s, messages.GameStartPayload{
		RoomID:        s.ID.String(),
		Color:         human.Color,
		ComputerColor: human.Color.Opp(),
		Mode:          s.Mode,
		FEN:           s.FEN(),
		ShowWinBar:    s.Computer.ShowWinBar,
		ShowBestMoves: s.Computer.ShowBestMoves,
	})

	if cc, _ := s.ComputerColor(); cc == s.Turn() {
		m.scheduleComputerMove(s)
	}
}

func (m *Manager) humanColor(s string) (color.Color, error) {
	if s == "" || s == "random" {
		if m.coin() {
			return color.White, nil
		}
		return color.Black, nil
	}
	return color.Parse(s)
}

// scheduleComputerMove waits the think delay, asks the advisory service for
// a move and applies it on the dispatcher.
func (m *Manager) scheduleComputerMove(s *game.Session) {
	id, gen := s.ID, s.Generation
	ctx := s.Context()
	req := advisor.Request{
		FEN:          s.FEN(),
		Depth:        s.Computer.Depth,
		ThinkingTime: s.Computer.ThinkingTime,
	}

	timer := m.clock.NewTimer(m.cfg.ComputerThinkDelay)
	go func() {
		select {
		case <-timer.Chan():
		case <-ctx.Done():
			timer.Stop()
			return
		}

		advice, err := m.advise(ctx, req)
		m.dispatch(func() { m.playComputerMove(id, gen, advice, err) })
	}()
}

func (m *Manager) playComputerMove(id uuid.UUID, gen uint64, advice advisor.Advice, adviceErr error) {
	s, err := m.registry.GetGeneration(id, gen)
	if err != nil {
		m.logger.Debug("discarding computer move for a stale room", zap.String("room_id", id.String()))
		return
	}

	cc, _ := s.ComputerColor()
	if s.Status() != game.StatusActive || s.Turn() != cc {
		return
	}

	spec := advice.Move
	if adviceErr != nil {
		m.logger.Warn("advisory service failed, playing a random move",
			zap.String("room_id", id.String()),
			zap.Error(adviceErr),
		)
		spec = m.randomMove(s)
	}

	res, err := s.ApplyMove(cc, spec)
	if err != nil {
		m.logger.Warn("advised move rejected, playing a random move",
			zap.String("room_id", id.String()),
			zap.String("move", spec.UCI()),
			zap.Error(err),
		)
		if res, err = s.ApplyMove(cc, m.randomMove(s)); err != nil {
			m.logger.Error("computer could not move", zap.String("room_id", id.String()), zap.Error(err))
			return
		}
	}

	m.announceMove(events.EventComputerMove, s, res)

	if res.Outcome != nil {
		m.announceOver(s, *res.Outcome, true)
		return
	}

	if s.Computer.ShowWinBar || s.Computer.ShowBestMoves {
		m.requestAdvice(s, s.Computer.ShowWinBar, s.Computer.ShowBestMoves)
	}
}

func (m *Manager) randomMove(s *game.Session) board.MoveSpec {
	moves := s.LegalMoves()
	if len(moves) == 0 {
		return board.MoveSpec{}
	}
	return moves[m.pick(len(moves))]
}

// requestAdvice fetches a hint for the position in the background and
// delivers it as an advice event.
func (m *Manager) requestAdvice(s *game.Session, winBar, bestMove bool) {
	id, gen := s.ID, s.Generation
	ctx := s.Context()
	req := advisor.Request{
		FEN:          s.FEN(),
		Depth:        m.cfg.HintDepth,
		ThinkingTime: m.cfg.HintThinkTime,
	}

	go func() {
		advice, err := m.advise(ctx, req)
		m.dispatch(func() {
			if ctx.Err() != nil {
				return
			}
			m.deliverAdvice(id, gen, advice, err, winBar, bestMove)
		})
	}()
}

func (m *Manager) deliverAdvice(id uuid.UUID, gen uint64, advice advisor.Advice, adviceErr error, winBar, bestMove bool) {
	s, err := m.registry.GetGeneration(id, gen)
	if err != nil {
		return
	}

	payload := messages.AdvicePayload{RoomID: id.String(), Available: adviceErr == nil}
	if adviceErr != nil {
		m.logger.Warn("advice unavailable", zap.String("room_id", id.String()), zap.Error(adviceErr))
	} else {
		if winBar && advice.HasWinChance {
			chance := advice.WinChance
			payload.WinChance = &chance
		}
		if bestMove {
			move := advice.Move
			payload.BestMove = &move
			payload.SAN = advice.SAN
		}
	}

	m.publish(events.EventAdvice, s, payload)
}

func (m *Manager) advise(ctx context.Context, req advisor.Request) (advisor.Advice, error) {
	ctx, cancel := context.WithTimeout(ctx, m.cfg.AdvisorTimeout)
	defer cancel()

	return m.advisor.Advise(ctx, req)
}

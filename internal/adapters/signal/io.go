package signal

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Poker/internal/app"
	"github.com/dkeye/Poker/internal/core"
	"github.com/dkeye/Poker/internal/domain"
	"github.com/dkeye/Poker/internal/protocol"
)

func (ctl *SignalWSController) writePump(ctx context.Context, c *WsSignalConn) {
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Msg("writePump ctx done")
			return
		case data, ok := <-c.send:
			if !ok {
				log.Warn().Str("module", "signal").Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		}
	}
}

func (ctl *SignalWSController) readPump(ctx context.Context, sid core.SessionID, c *WsSignalConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("readPump closing")
		ctl.onDisconnect(sid, c)
		c.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("readPump ctx done")
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				log.Info().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("readPump read error")
				return
			}
			ctl.handleSignal(sid, c, data)
		}
	}
}

func (ctl *SignalWSController) handleSignal(sid core.SessionID, c *WsSignalConn, data []byte) {
	var env protocol.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad json")
		ctl.sendError(c, protocol.CodeBadPayload, "malformed message")
		return
	}

	switch env.Type {
	case protocol.CmdCreateRoom:
		ctl.handleCreateRoom(sid, c, data)
	case protocol.CmdJoin:
		ctl.handleJoin(sid, c, data)
	case protocol.CmdLeave:
		ctl.handleLeave(sid, c)
	case protocol.CmdVote:
		ctl.handleVote(sid, c, data)
	case protocol.CmdReveal:
		ctl.handleReveal(sid, c)
	case protocol.CmdReset:
		ctl.handleReset(sid, c)
	case protocol.CmdScale:
		ctl.handleScale(sid, c, data)
	case protocol.CmdSpectator:
		ctl.handleSpectator(sid, c)
	case protocol.CmdWhoAmI:
		ctl.handleWhoAmI(sid, c)
	case protocol.CmdPing:
		ctl.handlePing(c)
	default:
		log.Warn().Str("module", "signal").Str("type", env.Type).Msg("unknown signal")
	}
}

func (ctl *SignalWSController) sendJSON(c core.SignalConnection, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return
	}
	_ = c.TrySend(b)
}

func (ctl *SignalWSController) sendError(c core.SignalConnection, code, message string) {
	ctl.sendJSON(c, protocol.ErrorEvent{Type: protocol.EvtError, Code: code, Message: message})
}

// failOp maps an operation error onto its wire code and reports it to the
// issuing connection only.
func (ctl *SignalWSController) failOp(c core.SignalConnection, err error) {
	ctl.sendError(c, errorCode(err), err.Error())
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, app.ErrNotInRoom):
		return protocol.CodeNotInRoom
	case errors.Is(err, core.ErrRoomNotFound):
		return protocol.CodeRoomNotFound
	case errors.Is(err, core.ErrParticipantNotFound):
		return protocol.CodeParticipantGone
	case errors.Is(err, core.ErrNotCreator):
		return protocol.CodeNotCreator
	case errors.Is(err, core.ErrSpectator):
		return protocol.CodeSpectator
	case errors.Is(err, core.ErrRoundClosed):
		return protocol.CodeRoundClosed
	case errors.Is(err, core.ErrInvalidVote):
		return protocol.CodeInvalidVote
	case errors.Is(err, core.ErrEmptyScale):
		return protocol.CodeEmptyScale
	case errors.Is(err, domain.ErrNameEmpty), errors.Is(err, domain.ErrNameTooLong):
		return protocol.CodeInvalidName
	default:
		return protocol.CodeInternal
	}
}

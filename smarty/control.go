package smarty

import (
	"strings"

	"go.uber.org/zap"

	"github.com/playmixer/fala/intent"
	"github.com/playmixer/fala/ipc"
)

// Control serves fala-ctl messages.
func (a *Assistant) Control(msg ipc.ControlMessage) ipc.ControlReply {
	switch msg.Cmd {
	case ipc.CmdListen:
		if err := a.Listen(); err != nil {
			return ipc.ControlReply{Message: err.Error()}
		}
		return ipc.ControlReply{OK: true, Message: "listening"}

	case ipc.CmdStop:
		a.Stop()
		return ipc.ControlReply{OK: true}

	case ipc.CmdSay:
		if strings.TrimSpace(msg.Text) == "" {
			return ipc.ControlReply{Message: "nothing to say"}
		}
		job := a.HandleText(msg.Text)
		if job == nil {
			return ipc.ControlReply{OK: true, Message: "handled"}
		}
		return ipc.ControlReply{OK: true, Message: job.Intent.Kind().String()}

	case ipc.CmdPhrase:
		if strings.TrimSpace(msg.Text) == "" {
			return ipc.ControlReply{Message: "nothing to say"}
		}
		job := a.Say(intent.Quick(msg.Text))
		if job == nil {
			return ipc.ControlReply{Message: ErrClosed.Error()}
		}
		return ipc.ControlReply{OK: true, Message: job.Intent.Kind().String()}

	case ipc.CmdBack:
		if a.board == nil {
			return ipc.ControlReply{Message: ErrNoBoard.Error()}
		}
		if r := a.board.NavigateBack(); r.Exit {
			return ipc.ControlReply{OK: true, Message: "exit"}
		}
		return ipc.ControlReply{OK: true, Message: strings.Join(a.board.Breadcrumb(), " / ")}

	case ipc.CmdGo:
		if a.board == nil {
			return ipc.ControlReply{Message: ErrNoBoard.Error()}
		}
		if !a.board.NavigateTo(msg.Text) {
			return ipc.ControlReply{Message: "no category " + msg.Text}
		}
		return ipc.ControlReply{OK: true, Message: strings.Join(a.board.Breadcrumb(), " / ")}

	case ipc.CmdSelect:
		if a.board == nil {
			return ipc.ControlReply{Message: ErrNoBoard.Error()}
		}
		if !a.board.SelectItemByID(msg.Text) {
			return ipc.ControlReply{Message: "no item " + msg.Text}
		}
		return ipc.ControlReply{OK: true}
	}

	a.log.Warn("unknown command", zap.String("cmd", msg.Cmd))
	return ipc.ControlReply{Message: "unknown command " + msg.Cmd}
}

package ws

import (
	"context"
	"encoding/json"
	"errors"

	"coiportal/internal/answers"
	"coiportal/internal/model"
	"coiportal/internal/render"
	"coiportal/internal/service"

	"go.uber.org/zap"
)

// AnswerOps is the part of the answer service reachable over WebSocket
type AnswerOps interface {
	View(ctx context.Context, actor model.Actor, id string, form *answers.FormState, validate bool) (*render.View, error)
	SaveDraft(ctx context.Context, actor model.Actor, id string, form *answers.FormState) (*model.DeclarationAnswer, error)
	Submit(ctx context.Context, actor model.Actor, id string, form *answers.FormState) (*model.DeclarationAnswer, error)
	Edit(ctx context.Context, actor model.Actor, id string, form *answers.FormState, apply func(*answers.Editor) error) (*service.EditResult, error)
}

// CommandHandler handles WebSocket commands. It lets an open form re-render
// on every edit without a round trip per HTTP request.
type CommandHandler struct {
	answerSvc AnswerOps
	log       *zap.Logger
}

func NewCommandHandler(answerSvc AnswerOps, log *zap.Logger) *CommandHandler {
	return &CommandHandler{
		answerSvc: answerSvc,
		log:       log,
	}
}

type commandData struct {
	AnswerID string             `json:"answerId"`
	Form     *answers.FormState `json:"form"`
	Validate bool               `json:"validate"`

	// edit targets
	QuestionID         int64  `json:"questionId"`
	OptionID           int64  `json:"optionId"`
	Index              int    `json:"index"`
	AdditionalAnswerID int64  `json:"additionalAnswerId"`
	Text               string `json:"text"`
	Agreed             bool   `json:"agreed"`
}

// edit returns the editor operation named by op, or nil
func (d commandData) edit(op string) func(*answers.Editor) error {
	switch op {
	case "select":
		return func(e *answers.Editor) error { return e.SelectOption(d.QuestionID, d.OptionID) }
	case "clearSelection":
		return func(e *answers.Editor) error { return e.ClearSelection(d.QuestionID) }
	case "agree":
		return func(e *answers.Editor) error { return e.SetAgreed(d.QuestionID, d.Agreed) }
	case "setText":
		return func(e *answers.Editor) error { return e.SetOpenEndedAnswer(d.QuestionID, d.OptionID, d.Text) }
	case "addGroup":
		return func(e *answers.Editor) error {
			_, err := e.AddGroup(d.QuestionID, d.OptionID)
			return err
		}
	case "removeGroup":
		return func(e *answers.Editor) error { return e.RemoveGroup(d.QuestionID, d.OptionID, d.Index) }
	case "setSubAnswer":
		return func(e *answers.Editor) error {
			return e.SetSubAnswer(d.QuestionID, d.OptionID, d.Index, d.AdditionalAnswerID, d.Text)
		}
	case "reset":
		return func(e *answers.Editor) error {
			e.Reset()
			return nil
		}
	}
	return nil
}

// HandleCommand processes a WebSocket command
func (h *CommandHandler) HandleCommand(ctx context.Context, conn *Conn, cmd map[string]json.RawMessage) {
	var op, msgID string
	_ = json.Unmarshal(cmd["op"], &op)
	_ = json.Unmarshal(cmd["id"], &msgID)

	var data commandData
	if raw, ok := cmd["data"]; ok {
		if err := json.Unmarshal(raw, &data); err != nil {
			h.sendError(conn, msgID, "invalid_input", err.Error())
			return
		}
	}
	if data.AnswerID == "" {
		h.sendError(conn, msgID, "invalid_input", "answerId required")
		return
	}

	switch op {
	case "render":
		view, err := h.answerSvc.View(ctx, conn.actor, data.AnswerID, data.Form, data.Validate)
		h.reply(conn, msgID, view, err)
	case "saveDraft":
		doc, err := h.answerSvc.SaveDraft(ctx, conn.actor, data.AnswerID, data.Form)
		h.reply(conn, msgID, doc, err)
	case "submit":
		doc, err := h.answerSvc.Submit(ctx, conn.actor, data.AnswerID, data.Form)
		h.reply(conn, msgID, doc, err)
	default:
		apply := data.edit(op)
		if apply == nil {
			h.sendError(conn, msgID, "unknown_command", "Unknown command: "+op)
			return
		}
		result, err := h.answerSvc.Edit(ctx, conn.actor, data.AnswerID, data.Form, apply)
		h.reply(conn, msgID, result, err)
	}
}

func (h *CommandHandler) reply(conn *Conn, msgID string, data interface{}, err error) {
	if err != nil {
		if verrs, ok := service.IsValidation(err); ok {
			h.sendResponse(conn, msgID, map[string]interface{}{
				"type":   "error",
				"code":   "validation_failed",
				"errors": verrs,
			})
			return
		}
		h.sendError(conn, msgID, errorCode(err), err.Error())
		return
	}
	h.sendResponse(conn, msgID, map[string]interface{}{
		"type": "response",
		"data": data,
	})
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return "not_found"
	case errors.Is(err, service.ErrForbidden):
		return "forbidden"
	case errors.Is(err, answers.ErrReadOnly):
		return "read_only"
	case errors.Is(err, answers.ErrSingleGroup):
		return "single_group"
	case errors.Is(err, answers.ErrNoSuchGroup):
		return "no_such_group"
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, answers.ErrUnknownQuestion),
		errors.Is(err, answers.ErrUnknownOption),
		errors.Is(err, answers.ErrUnknownSubQuestion),
		errors.Is(err, answers.ErrWrongKind),
		errors.Is(err, answers.ErrNoAdditionalAnswers),
		errors.Is(err, model.ErrUnsupportedQuestionType):
		return "invalid_input"
	}
	return "command_failed"
}

func (h *CommandHandler) sendResponse(conn *Conn, msgID string, response map[string]interface{}) {
	if msgID != "" {
		response["id"] = msgID
	}
	msg, err := json.Marshal(response)
	if err != nil {
		h.log.Error("Failed to encode response", zap.Error(err))
		return
	}
	if !conn.trySend(msg) {
		h.log.Warn("Failed to send response, channel full")
	}
}

func (h *CommandHandler) sendError(conn *Conn, msgID, code, message string) {
	h.sendResponse(conn, msgID, map[string]interface{}{
		"type":    "error",
		"code":    code,
		"message": message,
	})
}

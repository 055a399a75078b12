package realtime

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/swarooperla/Live-Polling-System/internal/polls"
	"github.com/swarooperla/Live-Polling-System/internal/students"
)

// EventHandler dispatches inbound socket events to the session registry and
// the poll lifecycle manager, and acks the requesting client.
type EventHandler struct {
	registry *students.Registry
	manager  *polls.Manager
	logger   *zap.Logger
}

// NewEventHandler creates the socket event dispatcher.
func NewEventHandler(registry *students.Registry, manager *polls.Manager, logger *zap.Logger) *EventHandler {
	return &EventHandler{registry: registry, manager: manager, logger: logger}
}

type registerRequest struct {
	Name string `json:"name"`
}

type createPollRequest struct {
	Question string `json:"question"`
	Choices  []struct {
		Text string `json:"text"`
	} `json:"choices"`
	Timer int `json:"timer"`
}

type submitAnswerRequest struct {
	PollID      string `json:"pollId"`
	ChoiceIndex int    `json:"choiceIndex"`
}

type endPollRequest struct {
	PollID string `json:"pollId"`
}

// Dispatch routes one inbound message. Unknown events are ignored.
func (h *EventHandler) Dispatch(c *Client, msg WSMessage) {
	ctx := context.Background()
	switch msg.Event {
	case "register_student":
		h.registerStudent(ctx, c, msg)
	case "create_poll":
		h.createPoll(ctx, c, msg)
	case "submit_answer":
		h.submitAnswer(ctx, c, msg)
	case "end_poll":
		h.endPoll(ctx, c, msg)
	case "clear_active_polls":
		h.clearActivePolls(ctx, c, msg)
	case "get_active_poll":
		h.getActivePoll(ctx, c, msg)
	case "get_participant_names":
		h.getParticipantNames(ctx, c, msg)
	default:
		// ignore
	}
}

// Disconnected releases the student name bound to a closing connection.
func (h *EventHandler) Disconnected(c *Client) {
	h.registry.Unregister(context.Background(), c.ID)
}

func (h *EventHandler) registerStudent(ctx context.Context, c *Client, msg WSMessage) {
	var req registerRequest
	if err := unmarshal(msg, &req); err != nil {
		c.ack(msg.ID, errAck("Invalid request"))
		return
	}
	student, err := h.registry.Register(ctx, req.Name, c.ID)
	if err != nil {
		c.ack(msg.ID, errAck(h.message(err)))
		return
	}
	c.ack(msg.ID, map[string]interface{}{"success": true, "student": student})
}

func (h *EventHandler) createPoll(ctx context.Context, c *Client, msg WSMessage) {
	var req createPollRequest
	if err := unmarshal(msg, &req); err != nil {
		c.ack(msg.ID, map[string]interface{}{"success": false, "error": "Invalid request"})
		return
	}
	choices := make([]string, len(req.Choices))
	for i, ch := range req.Choices {
		choices[i] = ch.Text
	}
	poll, err := h.manager.Create(ctx, req.Question, choices, req.Timer)
	if err != nil {
		c.ack(msg.ID, map[string]interface{}{"success": false, "error": h.message(err)})
		return
	}
	c.ack(msg.ID, map[string]interface{}{"success": true, "poll": poll})
}

func (h *EventHandler) submitAnswer(ctx context.Context, c *Client, msg WSMessage) {
	var req submitAnswerRequest
	if err := unmarshal(msg, &req); err != nil {
		c.ack(msg.ID, errAck("Invalid request"))
		return
	}
	pollID, err := uuid.Parse(req.PollID)
	if err != nil {
		c.ack(msg.ID, errAck("Poll not found"))
		return
	}
	if _, err := h.manager.SubmitAnswer(ctx, pollID, req.ChoiceIndex); err != nil {
		c.ack(msg.ID, errAck(h.message(err)))
		return
	}
	c.ack(msg.ID, map[string]interface{}{"success": true})
}

func (h *EventHandler) endPoll(ctx context.Context, c *Client, msg WSMessage) {
	var req endPollRequest
	if err := unmarshal(msg, &req); err != nil {
		c.ack(msg.ID, errAck("Invalid request"))
		return
	}
	pollID, err := uuid.Parse(req.PollID)
	if err != nil {
		c.ack(msg.ID, errAck("Poll not found"))
		return
	}
	if _, err := h.manager.End(ctx, pollID); err != nil {
		c.ack(msg.ID, errAck(h.message(err)))
		return
	}
	c.ack(msg.ID, map[string]interface{}{"success": true})
}

func (h *EventHandler) clearActivePolls(ctx context.Context, c *Client, msg WSMessage) {
	if err := h.manager.ClearActive(ctx); err != nil {
		c.ack(msg.ID, errAck(h.message(err)))
		return
	}
	c.ack(msg.ID, map[string]interface{}{"success": true})
}

func (h *EventHandler) getActivePoll(ctx context.Context, c *Client, msg WSMessage) {
	poll, err := h.manager.Active(ctx)
	if err != nil {
		c.ack(msg.ID, errAck(h.message(err)))
		return
	}
	c.ack(msg.ID, map[string]interface{}{"success": true, "poll": poll})
}

func (h *EventHandler) getParticipantNames(ctx context.Context, c *Client, msg WSMessage) {
	names, err := h.registry.Names(ctx)
	if err != nil {
		c.ack(msg.ID, errAck(h.message(err)))
		return
	}
	if names == nil {
		names = []string{}
	}
	c.ack(msg.ID, names)
}

// message converts an operation error into the stable client-facing string.
// Unexpected store failures are logged and masked.
func (h *EventHandler) message(err error) string {
	switch {
	case errors.Is(err, students.ErrNameTaken):
		return "Name already taken"
	case errors.Is(err, students.ErrEmptyName):
		return "Name must not be empty"
	case errors.Is(err, polls.ErrPollInProgress):
		return "Wait till the current poll completes"
	case errors.Is(err, polls.ErrPollNotFound), errors.Is(err, polls.ErrPollNotActive):
		return "Poll not found"
	case errors.Is(err, polls.ErrChoiceOutOfRange):
		return "Choice index out of range"
	case errors.Is(err, polls.ErrEmptyQuestion),
		errors.Is(err, polls.ErrTooFewChoices),
		errors.Is(err, polls.ErrEmptyChoice),
		errors.Is(err, polls.ErrBadTimeLimit):
		return err.Error()
	default:
		h.logger.Error("socket operation failed", zap.Error(err))
		return "Server error"
	}
}

func errAck(message string) map[string]interface{} {
	return map[string]interface{}{"error": message}
}

func unmarshal(msg WSMessage, v interface{}) error {
	if len(msg.Data) == 0 {
		return errors.New("empty payload")
	}
	return json.Unmarshal(msg.Data, v)
}

package http

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/edunexus/server/internal/core"
	"github.com/edunexus/server/internal/proto"
)

func parseCourseID(raw string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func inboundToCommand(session *core.Session, inbound proto.Inbound) (*core.Command, *proto.Error, error) {
	switch inbound.Type {
	case proto.InboundTypeJoinCourse:
		var join proto.JoinCourseData
		if err := json.Unmarshal(inbound.Data, &join); err != nil {
			return nil, nil, err
		}
		courseID, ok := parseCourseID(join.CourseID)
		if !ok {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Message: "courseId is required"}, nil
		}
		return &core.Command{
			Kind:     core.CommandJoinCourse,
			CourseID: courseID,
		}, nil, nil
	case proto.InboundTypeLeaveCourse:
		var leave proto.JoinCourseData
		if err := json.Unmarshal(inbound.Data, &leave); err != nil {
			return nil, nil, err
		}
		courseID, ok := parseCourseID(leave.CourseID)
		if !ok {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Message: "courseId is required"}, nil
		}
		return &core.Command{
			Kind:     core.CommandLeaveCourse,
			CourseID: courseID,
		}, nil, nil
	case proto.InboundTypeSendMessage:
		var msg proto.SendMessageData
		if err := json.Unmarshal(inbound.Data, &msg); err != nil {
			return nil, nil, err
		}
		courseID, ok := parseCourseID(msg.CourseID)
		if !ok {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Message: "courseId is required"}, nil
		}
		// Clients may echo their own id; it must match the
		// authenticated session, never override it.
		if msg.SenderID != "" && msg.SenderID != strconv.FormatInt(session.UserID, 10) {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Message: "senderId does not match authenticated user"}, nil
		}
		return &core.Command{
			Kind:     core.CommandSendMessage,
			CourseID: courseID,
			Content:  msg.Content,
		}, nil, nil
	default:
		return nil, &proto.Error{Code: "invalid_message", Message: "unknown message type"}, nil
	}
}

func messagePayload(msg *core.Message) proto.MessagePayload {
	return proto.MessagePayload{
		ID:        strconv.FormatInt(msg.ID, 10),
		CourseID:  strconv.FormatInt(msg.CourseID, 10),
		Content:   msg.Content,
		CreatedAt: msg.CreatedAt.UTC().Format(time.RFC3339),
		Sender: proto.SenderPayload{
			ID:    strconv.FormatInt(msg.SenderID, 10),
			Name:  msg.Sender.Name,
			Email: msg.Sender.Email,
			Role:  string(msg.Sender.Role),
		},
	}
}

func outboundFromEvent(event *core.Event) proto.Outbound {
	switch event.Kind {
	case core.EventNewMessage:
		return proto.Outbound{
			Type: proto.OutboundTypeNewMessage,
			Data: messagePayload(event.Message),
		}
	case core.EventHistory:
		messages := make([]proto.MessagePayload, 0, len(event.Messages))
		for i := range event.Messages {
			messages = append(messages, messagePayload(&event.Messages[i]))
		}
		return proto.Outbound{
			Type: proto.OutboundTypePreviousMessages,
			Data: messages,
		}
	case core.EventError:
		if event.Error == nil {
			return proto.Outbound{Type: proto.OutboundTypeError, Error: &proto.Error{Code: "unknown", Message: "unknown error"}}
		}
		return proto.Outbound{
			Type:  proto.OutboundTypeError,
			Error: &proto.Error{Code: event.Error.Code, Message: event.Error.Message},
		}
	default:
		return proto.Outbound{Type: proto.OutboundTypeError, Error: &proto.Error{Code: "unknown", Message: "unhandled event"}}
	}
}

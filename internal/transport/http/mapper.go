package http

import (
	"github.com/avolkov/directline/internal/core"
	"github.com/avolkov/directline/internal/proto"
)

func toWireRef(ref core.UserRef) proto.UserRef {
	return proto.UserRef{ID: ref.ID, Name: ref.Name, Username: ref.Username}
}

func toWireMessage(msg *core.Message) proto.MessagePayload {
	return proto.MessagePayload{
		ID:        msg.ID,
		From:      toWireRef(msg.From),
		To:        toWireRef(msg.To),
		Content:   msg.Content,
		Read:      msg.Read,
		CreatedAt: msg.CreatedAt,
	}
}

// outboundFromEvent converts a core event into its wire representation.
func outboundFromEvent(event *core.Event) proto.Outbound {
	switch event.Kind {
	case core.EventMessageReceive:
		return proto.Outbound{
			Type: proto.OutboundTypeMessageReceive,
			Data: toWireMessage(event.Message),
		}
	case core.EventMessageSent:
		return proto.Outbound{
			Type: proto.OutboundTypeMessageSent,
			Data: toWireMessage(event.Message),
		}
	case core.EventNotification:
		return proto.Outbound{
			Type: proto.OutboundTypeNotification,
			Data: proto.NotificationPayload{
				From:      toWireRef(event.Message.From),
				Message:   event.Message.Content,
				Timestamp: event.Message.CreatedAt,
			},
		}
	case core.EventUsersList:
		users := make([]proto.UserPayload, 0, len(event.Users))
		for _, u := range event.Users {
			users = append(users, proto.UserPayload{
				ID:       u.ID,
				Name:     u.Name,
				Username: u.Username,
				Online:   u.Online,
				LastSeen: u.LastSeen,
			})
		}
		return proto.Outbound{
			Type: proto.OutboundTypeUsersList,
			Data: users,
		}
	case core.EventUserOnline:
		return proto.Outbound{
			Type: proto.OutboundTypeUserOnline,
			Data: proto.PresencePayload{UserID: event.UserID, Username: event.Username},
		}
	case core.EventUserOffline:
		return proto.Outbound{
			Type: proto.OutboundTypeUserOffline,
			Data: proto.PresencePayload{UserID: event.UserID, Username: event.Username},
		}
	case core.EventMessageError:
		if event.Error == nil {
			return proto.Outbound{
				Type: proto.OutboundTypeMessageError,
				Data: proto.ErrorPayload{Message: "unknown error"},
			}
		}
		return proto.Outbound{
			Type: proto.OutboundTypeMessageError,
			Data: proto.ErrorPayload{Code: event.Error.Code, Message: event.Error.Message},
		}
	default:
		return proto.Outbound{Type: proto.OutboundTypeMessageError, Data: proto.ErrorPayload{Message: "unknown event"}}
	}
}

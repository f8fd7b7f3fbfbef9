package handler

import "cravlr/internal/service"

type Handlers struct {
	Time         *TimeHandler
	Request      *RequestHandler
	Notification *NotificationHandler
	Popup        *PopupHandler
	Session      *SessionHandler
}

func NewHandlers(services *service.Services, transport service.Transport) *Handlers {
	return &Handlers{
		Time:         NewTimeHandler(transport.Clock),
		Request:      NewRequestHandler(services.Request),
		Notification: NewNotificationHandler(services.Notification),
		Popup:        NewPopupHandler(services.Hub, transport.Clock),
		Session:      NewSessionHandler(services.Hub),
	}
}

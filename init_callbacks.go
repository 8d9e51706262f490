package main

import (
	"context"

	"go.uber.org/zap"

	"github.com/akinalp/atelier/services"
	"github.com/akinalp/atelier/ws"
)

// registerHubCallbacks wires admin presence into the hub.
//
// The hub lives in ws and knows nothing about services, so the wiring happens
// here. Callbacks run on their own goroutine, outside the hub lock.
func registerHubCallbacks(hub *ws.Hub, userService services.UserService) {
	log := zap.L().Named("presence")

	hub.OnUserFirstConnect(func(userID string) {
		if err := userService.MarkSeen(context.Background(), userID); err != nil {
			log.Warn("failed to record last seen", zap.String("user_id", userID), zap.Error(err))
		}

		hub.BroadcastToAll(ws.Event{
			Op:   ws.OpPresence,
			Data: ws.PresenceData{UserID: userID, Online: true},
		})
		log.Info("admin online", zap.String("user_id", userID))
	})

	hub.OnUserFullyDisconnect(func(userID string) {
		hub.BroadcastToAll(ws.Event{
			Op:   ws.OpPresence,
			Data: ws.PresenceData{UserID: userID, Online: false},
		})
		log.Info("admin offline", zap.String("user_id", userID))
	})
}

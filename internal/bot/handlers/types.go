package handlers

import (
	telebot "gopkg.in/telebot.v3"
)

// Handler processes one inbound update.
type Handler func(c telebot.Context) error

// Middleware wraps handlers with additional behavior.
type Middleware func(Handler) Handler

// Chain wraps h with every middleware, outermost first.
func Chain(h Handler, middlewares ...Middleware) Handler {
	if h == nil {
		return nil
	}

	wrapped := h
	for i := len(middlewares) - 1; i >= 0; i-- {
		wrapped = middlewares[i](wrapped)
	}

	return wrapped
}

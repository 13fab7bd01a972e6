// SPDX-FileCopyrightText: Copyright 2026 Carabiner Systems, Inc
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"net/url"

	"github.com/carabiner-dev/hostedlogin/pkg/client/credentials"
)

// State is where a page load leaves the login flow
type State int

const (
	StateIdle State = iota
	StateAwaitingCallback
	StateAuthenticated
	StateLoginError
	StateCallbackError
	StateLoginPrompt
	StateSetupPrompt
)

var stateNames = map[State]string{
	StateIdle:             "idle",
	StateAwaitingCallback: "awaiting-callback",
	StateAuthenticated:    "authenticated",
	StateLoginError:       "login-error",
	StateCallbackError:    "callback-error",
	StateLoginPrompt:      "login-prompt",
	StateSetupPrompt:      "setup-prompt",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return "unknown"
}

// Card is the panel a host renders
type Card int

const (
	CardNone Card = iota
	CardSetup
	CardLogin
	CardCallback
	CardLoggedIn
)

func (c Card) String() string {
	switch c {
	case CardSetup:
		return "setup"
	case CardLogin:
		return "login"
	case CardCallback:
		return "callback"
	case CardLoggedIn:
		return "logged-in"
	default:
		return "none"
	}
}

// View is what the host should present
type View struct {
	Card    Card
	Status  string
	IsError bool

	// Config prefills the setup and login cards
	Config credentials.Config

	// User names the subject on the logged in card
	User string
}

// Action is the side effect a transition asks the driver to perform
type Action int

const (
	ActionNone Action = iota
	ActionExchange
)

// Input is everything the state machine looks at on a page load
type Input struct {
	URL      *url.URL
	LoggedIn bool
	Config   credentials.Config
	User     string
}

// Transition is the outcome of Resolve
type Transition struct {
	State State
	View  View

	// CleanURL asks the host to drop the query string from the visible
	// URL without reloading the page.
	CleanURL bool

	Action Action
	Code   string

	// Err is the condition surfaced in the view, if any
	Err error
}

// Resolve maps a page load onto the next state. It performs no I/O.
func Resolve(in Input) Transition {
	var q url.Values
	if in.URL != nil {
		q = in.URL.Query()
	}

	if errCode := q.Get("error"); errCode != "" {
		perr := &ProviderError{Code: errCode, Description: q.Get("error_description")}
		return Transition{
			State:    StateLoginError,
			View:     View{Card: CardLogin, Status: perr.Message(), IsError: true, Config: in.Config},
			CleanURL: true,
			Err:      perr,
		}
	}

	if code := q.Get("code"); code != "" {
		return Transition{
			State:  StateAwaitingCallback,
			View:   View{Card: CardCallback, Status: MsgCompletingLogin},
			Action: ActionExchange,
			Code:   code,
		}
	}

	switch {
	case in.LoggedIn:
		return Transition{
			State: StateAuthenticated,
			View:  View{Card: CardLoggedIn, User: in.User, Config: in.Config},
		}
	case in.Config.Complete():
		return Transition{
			State: StateLoginPrompt,
			View:  View{Card: CardLogin, Config: in.Config},
		}
	default:
		return Transition{
			State: StateSetupPrompt,
			View:  View{Card: CardSetup, Config: in.Config},
		}
	}
}

package pxeboot

import (
	sw "github.com/filanov/stateswitch"
	"github.com/pkg/errors"
)

const (
	// attempt states
	//
	// the SM transitions through these states for a single PXE boot attempt.
	stateInit          sw.State = "init"
	stateMediaInjected sw.State = "mediaInjected"
	stateBootTriggered sw.State = "bootTriggered"
	stateConsoleOpen   sw.State = "consoleOpen"
	stateMenuComplete  sw.State = "menuComplete"
	stateDone          sw.State = "done"
	stateFailed        sw.State = "failed"

	transitionTypeInjectMedia  sw.TransitionType = "injectingMedia"
	transitionTypeTriggerBoot  sw.TransitionType = "triggeringBoot"
	transitionTypeOpenConsole  sw.TransitionType = "openingConsole"
	transitionTypeNavigateMenu sw.TransitionType = "navigatingMenu"
	transitionTypeVerify       sw.TransitionType = "verifyingBoot"
	transitionTypeFailed       sw.TransitionType = "attemptFailed"
)

var errInvalidTransitionArgs = errors.New("expected a *handlerContext{} type")

// attempt is the stateswitch entity for one PXE boot attempt.
type attempt struct {
	state sw.State
}

func (a *attempt) State() sw.State { return a.state }

func (a *attempt) SetState(s sw.State) error {
	a.state = s
	return nil
}

// transitionOrder is the strict stage ordering, none skippable.
var transitionOrder = []sw.TransitionType{
	transitionTypeInjectMedia,
	transitionTypeTriggerBoot,
	transitionTypeOpenConsole,
	transitionTypeNavigateMenu,
	transitionTypeVerify,
}

func newStateMachine(handler *handler) sw.StateMachine {
	m := sw.NewStateMachine()

	m.AddTransition(sw.TransitionRule{
		TransitionType:   transitionTypeInjectMedia,
		SourceStates:     sw.States{stateInit},
		DestinationState: stateMediaInjected,
		Transition:       handler.injectMedia,
	})

	m.AddTransition(sw.TransitionRule{
		TransitionType:   transitionTypeTriggerBoot,
		SourceStates:     sw.States{stateMediaInjected},
		DestinationState: stateBootTriggered,
		Transition:       handler.triggerBoot,
	})

	m.AddTransition(sw.TransitionRule{
		TransitionType:   transitionTypeOpenConsole,
		SourceStates:     sw.States{stateBootTriggered},
		DestinationState: stateConsoleOpen,
		Transition:       handler.openConsole,
	})

	m.AddTransition(sw.TransitionRule{
		TransitionType:   transitionTypeNavigateMenu,
		SourceStates:     sw.States{stateConsoleOpen},
		DestinationState: stateMenuComplete,
		Transition:       handler.navigateMenu,
	})

	m.AddTransition(sw.TransitionRule{
		TransitionType:   transitionTypeVerify,
		SourceStates:     sw.States{stateMenuComplete},
		DestinationState: stateDone,
		Transition:       handler.verify,
	})

	m.AddTransition(sw.TransitionRule{
		TransitionType: transitionTypeFailed,
		SourceStates: sw.States{
			stateInit,
			stateMediaInjected,
			stateBootTriggered,
			stateConsoleOpen,
			stateMenuComplete,
		},
		DestinationState: stateFailed,
	})

	return m
}

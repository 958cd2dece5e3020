package blockchain

import (
	"context"

	"github.com/looplab/fsm"
)

type FSMStateType string

type FSMEventType string

const (
	FSMStateIDLE           FSMStateType = "IDLE"
	FSMStateRUNNING        FSMStateType = "RUNNING"
	FSMStateCATCHINGBLOCKS FSMStateType = "CATCHINGBLOCKS"

	FSMEventRUN           FSMEventType = "RUN"
	FSMEventCATCHUPBLOCKS FSMEventType = "CATCHUPBLOCKS"
	FSMEventIDLE          FSMEventType = "IDLE"
)

var fsmEventDestinations = map[FSMEventType]FSMStateType{
	FSMEventRUN:           FSMStateRUNNING,
	FSMEventCATCHUPBLOCKS: FSMStateCATCHINGBLOCKS,
	FSMEventIDLE:          FSMStateIDLE,
}

func (s FSMStateType) String() string {
	return string(s)
}

func (e FSMEventType) String() string {
	return string(e)
}

// NewFiniteStateMachine creates the state machine of the chain state.
// The finite state machine has the following states:
// - IDLE: blocks are not accepted and no templates are served
// - RUNNING: normal operation
// - CATCHINGBLOCKS: blocks are accepted but templates are not served
func (b *Blockchain) NewFiniteStateMachine(opts ...func(*fsm.FSM)) *fsm.FSM {
	finiteStateMachine := fsm.NewFSM(
		FSMStateIDLE.String(),
		fsm.Events{
			{
				Name: FSMEventRUN.String(),
				Src: []string{
					FSMStateIDLE.String(),
					FSMStateCATCHINGBLOCKS.String(),
				},
				Dst: FSMStateRUNNING.String(),
			},
			{
				Name: FSMEventCATCHUPBLOCKS.String(),
				Src: []string{
					FSMStateIDLE.String(),
					FSMStateRUNNING.String(),
				},
				Dst: FSMStateCATCHINGBLOCKS.String(),
			},
			{
				Name: FSMEventIDLE.String(),
				Src: []string{
					FSMStateRUNNING.String(),
					FSMStateCATCHINGBLOCKS.String(),
				},
				Dst: FSMStateIDLE.String(),
			},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				b.logger.Infof("[Blockchain] FSM transition %s: %s -> %s", e.Event, e.Src, e.Dst)
				prometheusBlockchainFSMState.Set(float64(fsmStateIndex(FSMStateType(e.Dst))))
			},
		},
	)

	for _, opt := range opts {
		opt(finiteStateMachine)
	}

	return finiteStateMachine
}

func fsmStateIndex(state FSMStateType) int {
	switch state {
	case FSMStateRUNNING:
		return 1
	case FSMStateCATCHINGBLOCKS:
		return 2
	default:
		return 0
	}
}

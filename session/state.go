/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package session holds per-VLAN PTP synchronization state: the four
// timestamps of one Sync/Delay_Req/Delay_Resp cycle, the state machine
// driving when a Delay_Req is sent, and the counters a reporting thread
// reads back.
package session

import "fmt"

// State is one of the PTP slave session's lifecycle states.
type State uint8

// Session states, in the order they appear on the happy path.
const (
	StateInit State = iota
	StateListening
	StateSyncReceived
	StateDelayReqSent
	StateSynced
	StateError
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateListening:
		return "LISTENING"
	case StateSyncReceived:
		return "SYNC_RECEIVED"
	case StateDelayReqSent:
		return "DELAY_REQ_SENT"
	case StateSynced:
		return "SYNCED"
	case StateError:
		return "ERROR"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", uint8(s))
	}
}

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

package session

import "time"

// Config holds the tunables of the state machine. Defaults match the
// deployment this client was built for.
type Config struct {
	SyncTimeout      time.Duration
	DelayRespTimeout time.Duration
	DelayReqInterval time.Duration
}

// DefaultConfig returns the state-machine timing constants.
func DefaultConfig() Config {
	return Config{
		SyncTimeout:      3 * time.Second,
		DelayRespTimeout: 2 * time.Second,
		DelayReqInterval: 100 * time.Millisecond,
	}
}

func durationToTicks(d time.Duration, tickHz uint64) uint64 {
	return uint64(d.Seconds() * float64(tickHz))
}

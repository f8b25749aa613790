// Copyright 2025 The packetd Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package rescue

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/packetd/dispatchd/internal/alloc"
)

func TestHandleCrashSwallowsOrdinaryPanic(t *testing.T) {
	assert.NotPanics(t, func() {
		defer HandleCrash()
		panic("ordinary application panic")
	})
}

func TestHandleCrashRepanicsDebugCorruption(t *testing.T) {
	assert.PanicsWithValue(t, alloc.DebugCorruption{Reason: "double free"}, func() {
		defer HandleCrash()
		panic(alloc.DebugCorruption{Reason: "double free"})
	})
}

func TestHandleCrashIsNoopWithoutPanic(t *testing.T) {
	assert.NotPanics(t, func() {
		defer HandleCrash()
	})
}

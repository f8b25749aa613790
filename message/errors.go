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

package message

import "github.com/pkg/errors"

func newError(format string, args ...any) error {
	return errors.Errorf("message: "+format, args...)
}

// ErrIncompleteSplice is returned by Send when the message hasn't been
// received far enough to safely splice in replacement delivery
// annotations (Check(DepthDeliveryAnnotations) failed).
var ErrIncompleteSplice = errors.New("message: insufficient data received to splice delivery annotations")

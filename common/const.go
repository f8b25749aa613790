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

package common

const (
	// App 应用程序名称
	App = "dispatchd"

	// Version 应用程序版本
	Version = "v0.0.1"

	// ReadWriteBlockSize 从 Delivery 拉取数据时单次读取的字节数上限
	//
	// 仅用于控制每次 message.Delivery.Recv 调用尝试填充的数据量
	// 避免一次性申请过大的临时切片
	ReadWriteBlockSize = 4096
)

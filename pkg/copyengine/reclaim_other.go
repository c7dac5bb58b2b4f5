// Copyright 2025 the copyfx authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

//go:build !windows

package copyengine

import "os"

// clearReadOnly restores owner write permission so the delete can proceed.
func clearReadOnly(path string) error {
	return os.Chmod(path, 0o666)
}

// grantFullControl has no separate ACL model to adjust here; widening the
// mode is the whole elevation attempt.
func grantFullControl(path string) error {
	return os.Chmod(path, 0o777)
}

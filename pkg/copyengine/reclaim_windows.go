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

//go:build windows

package copyengine

import (
	"os"

	"gitlab.com/tozd/go/errors"
	"golang.org/x/sys/windows"
)

// clearReadOnly strips the read-only attribute so a subsequent delete can
// succeed. Chmod alone covers the common case; resetting the attribute word
// to NORMAL also drops hidden/system bits that block deletion.
func clearReadOnly(path string) error {
	if err := os.Chmod(path, 0o666); err != nil {
		return errors.Errorf("chmod: %w", err)
	}
	ptr, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return errors.Errorf("encoding path: %w", err)
	}
	if err := windows.SetFileAttributes(ptr, windows.FILE_ATTRIBUTE_NORMAL); err != nil {
		return errors.Errorf("resetting file attributes: %w", err)
	}
	return nil
}

// grantFullControl rewrites the file's DACL to grant the current identity
// full control. Used once when a delete fails with a permission error.
func grantFullControl(path string) error {
	tok := windows.GetCurrentProcessToken()
	user, err := tok.GetTokenUser()
	if err != nil {
		return errors.Errorf("resolving current identity: %w", err)
	}

	entries := []windows.EXPLICIT_ACCESS{{
		AccessPermissions: windows.GENERIC_ALL,
		AccessMode:        windows.GRANT_ACCESS,
		Inheritance:       windows.NO_INHERITANCE,
		Trustee: windows.TRUSTEE{
			TrusteeForm:  windows.TRUSTEE_IS_SID,
			TrusteeType:  windows.TRUSTEE_IS_USER,
			TrusteeValue: windows.TrusteeValueFromSID(user.User.Sid),
		},
	}}

	acl, err := windows.ACLFromEntries(entries, nil)
	if err != nil {
		return errors.Errorf("building DACL: %w", err)
	}

	err = windows.SetNamedSecurityInfo(
		path,
		windows.SE_FILE_OBJECT,
		windows.DACL_SECURITY_INFORMATION,
		nil, nil, acl, nil,
	)
	if err != nil {
		return errors.Errorf("applying DACL: %w", err)
	}
	return nil
}

// SPDX-FileCopyrightText: The go-mail Authors
//
// SPDX-License-Identifier: MIT

// Package securemail sends S/MIME encrypted mails to recipients whose certificates are known.
//
// For every send, exactly one certificate of the recipient is selected (key encipherment key
// usage or the configured secure email extended key usage), the formatted HTML body is wrapped
// into a minimal MIME body, encrypted into a CMS EnvelopedData structure and attached as the
// sole alternative view of an outbound Msg. Nothing is ever sent unencrypted: if no usable
// certificate exists or encryption fails, no message is built.
package securemail

// VERSION indicates the current version of the package. It is also attached to the default user
// agent string.
const VERSION = "0.1.0"

// SPDX-FileCopyrightText: The go-mail Authors
//
// SPDX-License-Identifier: MIT

package securemail

// EnvelopeBoundary is the fixed MIME boundary of the body that is encrypted into the envelope.
const EnvelopeBoundary = "unique-boundary-1"

// BuildEnvelopeBody wraps the rendered HTML body into the MIME structure that is encrypted into
// the S/MIME envelope, using the fixed EnvelopeBoundary.
//
// The result consists of a multipart/mixed header block, a single text/html part with 7bit
// transfer encoding holding htmlBody verbatim and the boundary footer line. All lines end with
// CRLF. The body is not checked for occurrences of the boundary.
func BuildEnvelopeBody(htmlBody string) string {
	return BuildEnvelopeBodyWithBoundary(htmlBody, EnvelopeBoundary)
}

// BuildEnvelopeBodyWithBoundary works like BuildEnvelopeBody but uses the given boundary.
// An empty boundary falls back to EnvelopeBoundary.
func BuildEnvelopeBodyWithBoundary(htmlBody, boundary string) string {
	if boundary == "" {
		boundary = EnvelopeBoundary
	}
	return envelopeBodyPrefix(boundary) + htmlBody + envelopeBodySuffix(boundary)
}

// envelopeBodyPrefix returns the header block that precedes the HTML body
func envelopeBodyPrefix(boundary string) string {
	return "content-type: multipart/mixed; boundary=" + boundary + DoubleNewLine + "--" + boundary +
		SingleNewLine + "Content-Type: text/html" + SingleNewLine + "Content-Transfer-Encoding: 7bit" + DoubleNewLine
}

// envelopeBodySuffix returns the footer that follows the HTML body
func envelopeBodySuffix(boundary string) string {
	return SingleNewLine + "--" + boundary + SingleNewLine
}

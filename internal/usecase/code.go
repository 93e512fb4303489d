package usecase

import "strings"

const fence = "```"

// StripCodeFence removes a single markdown code fence wrapping the whole of
// s, including its language tag. Text with no fence, or with more than one
// fenced block, is returned unchanged.
func StripCodeFence(s string) string {
	t := strings.TrimSpace(s)
	if !strings.HasPrefix(t, fence) || !strings.HasSuffix(t, fence) {
		return s
	}
	body := strings.TrimSuffix(t, fence)
	nl := strings.IndexByte(body, '\n')
	if nl < 0 {
		return s
	}
	body = body[nl+1:]
	if strings.Contains(body, fence) {
		return s
	}
	return strings.Trim(body, "\r\n") + "\n"
}

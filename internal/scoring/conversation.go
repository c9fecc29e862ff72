package scoring

import (
	"strings"
	"unicode/utf8"

	"github.com/ahrav/go-coach/internal/domain"
)

// Reply length bounds, in characters.
const (
	minReplyLength = 20
	maxReplyLength = 500

	conversationMax = 3.0
)

// ScoreConversation rates one coach reply on three criteria: the reply is
// not blank, its length is reasonable, and the readiness flag is a
// recognizable boolean.
func ScoreConversation(reply domain.CoachReply) float64 {
	points := noCredit

	if strings.TrimSpace(reply.Text) != "" {
		points += fullCredit
	}

	switch n := utf8.RuneCountInString(reply.Text); {
	case n >= minReplyLength && n <= maxReplyLength:
		points += fullCredit
	case n > 0:
		points += partialCredit
	}

	if reply.ShouldExtract.Valid() {
		points += fullCredit
	}

	return points / conversationMax
}

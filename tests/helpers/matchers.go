package helpers

import (
	"github.com/google/uuid"
	"github.com/hbomb79/Hermes/internal/event"
	"github.com/hbomb79/go-chanassert"
)

// MatchProgressSample returns a matcher which will match bus messages
// carrying a yt-dlp progress sample with the exact percentage provided.
func MatchProgressSample(percent float64) chanassert.Matcher[event.HandlerEvent] {
	return chanassert.MatchPredicate(func(message event.HandlerEvent) bool {
		signal, ok := message.Payload.(event.ProgressSignal)
		return ok && !signal.Finished && signal.Percent == percent
	})
}

// MatchDownloadTerminal returns a chanassert matcher which will
// match the completion announcement for the download provided, regardless
// of whether it completed or failed.
func MatchDownloadTerminal(id uuid.UUID) chanassert.Matcher[event.HandlerEvent] {
	return chanassert.MatchPredicate(func(message event.HandlerEvent) bool {
		return message.Event == event.DownloadCompleteEvent && message.Payload == id
	})
}

package store

import "encoding/json"

// Reactions holds the reaction state of one message: who reacted with
// what, and aggregate per-emoji counts. The three control flags are
// transient: they tell Consolidate how to merge this value with whatever
// is already stored and are always false in a persisted value.
type Reactions struct {
	SenderEmojis map[string]string `json:"senderEmojis,omitempty"`
	EmojiCounts  map[string]int    `json:"emojiCounts,omitempty"`

	NeedConsolidation      bool `json:"-"`
	UpdateCountFromSenders bool `json:"-"`
	ReplaceCount           bool `json:"-"`
}

// IsDefault reports whether r carries no reaction data and no pending
// merge instructions.
func (r Reactions) IsDefault() bool {
	return len(r.SenderEmojis) == 0 && len(r.EmojiCounts) == 0 &&
		!r.NeedConsolidation && !r.UpdateCountFromSenders && !r.ReplaceCount
}

// ClearFlags resets the transient control flags, making r a terminal
// snapshot suitable for persisting.
func (r *Reactions) ClearFlags() {
	r.NeedConsolidation = false
	r.UpdateCountFromSenders = false
	r.ReplaceCount = false
}

// Consolidate merges target, an incoming reaction update, onto source,
// the previously stored value. target is rewritten in place into the
// value to persist:
//
//   - sender entries from target override source; an empty emoji removes
//     the sender ("reaction removed")
//   - counts start from target's own map when ReplaceCount is set,
//     otherwise from source's
//   - UpdateCountFromSenders discards that baseline and re-tallies one
//     count per emoji in the merged sender map (for origins that only
//     report per-sender state)
//
// The control flags are cleared afterwards, so re-running Consolidate on
// its own output is a no-op.
func Consolidate(source Reactions, target *Reactions) {
	combined := make(map[string]string, len(source.SenderEmojis)+len(target.SenderEmojis))
	for sender, emoji := range source.SenderEmojis {
		combined[sender] = emoji
	}
	for sender, emoji := range target.SenderEmojis {
		if emoji == "" {
			delete(combined, sender)
		} else {
			combined[sender] = emoji
		}
	}
	target.SenderEmojis = combined

	if !target.ReplaceCount {
		counts := make(map[string]int, len(source.EmojiCounts))
		for emoji, count := range source.EmojiCounts {
			counts[emoji] = count
		}
		target.EmojiCounts = counts
	}

	if target.UpdateCountFromSenders {
		counts := make(map[string]int)
		for _, emoji := range combined {
			counts[emoji]++
		}
		target.EmojiCounts = counts
	}

	target.ClearFlags()
}

// encodeReactions serializes r for the reactions column. Default values
// are stored as the empty string so pre-reaction rows and no-reaction
// rows look the same.
func encodeReactions(r Reactions) (string, error) {
	if r.IsDefault() {
		return "", nil
	}
	data, err := json.Marshal(r)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// decodeReactions parses a reactions column value. Flags in a persisted
// value are always false.
func decodeReactions(encoded string) (Reactions, error) {
	var r Reactions
	if encoded == "" {
		return r, nil
	}
	if err := json.Unmarshal([]byte(encoded), &r); err != nil {
		return Reactions{}, err
	}
	return r, nil
}

package store

import (
	"reflect"
	"testing"
)

func TestConsolidateMergesSenders(t *testing.T) {
	source := Reactions{SenderEmojis: map[string]string{"u1": "👍"}}
	target := Reactions{
		SenderEmojis:           map[string]string{"u2": "❤️"},
		UpdateCountFromSenders: true,
	}

	Consolidate(source, &target)

	wantSenders := map[string]string{"u1": "👍", "u2": "❤️"}
	if !reflect.DeepEqual(target.SenderEmojis, wantSenders) {
		t.Errorf("senders = %v, want %v", target.SenderEmojis, wantSenders)
	}
	wantCounts := map[string]int{"👍": 1, "❤️": 1}
	if !reflect.DeepEqual(target.EmojiCounts, wantCounts) {
		t.Errorf("counts = %v, want %v", target.EmojiCounts, wantCounts)
	}
}

func TestConsolidateEmptyEmojiRemovesSender(t *testing.T) {
	source := Reactions{
		SenderEmojis: map[string]string{"u1": "👍", "u2": "❤️"},
		EmojiCounts:  map[string]int{"👍": 1, "❤️": 1},
	}
	target := Reactions{
		SenderEmojis:           map[string]string{"u1": ""},
		UpdateCountFromSenders: true,
	}

	Consolidate(source, &target)

	wantSenders := map[string]string{"u2": "❤️"}
	if !reflect.DeepEqual(target.SenderEmojis, wantSenders) {
		t.Errorf("senders = %v, want %v", target.SenderEmojis, wantSenders)
	}
	wantCounts := map[string]int{"❤️": 1}
	if !reflect.DeepEqual(target.EmojiCounts, wantCounts) {
		t.Errorf("counts = %v, want %v", target.EmojiCounts, wantCounts)
	}

	// Re-adding restores the sender.
	readd := Reactions{
		SenderEmojis:           map[string]string{"u1": "😀"},
		UpdateCountFromSenders: true,
	}
	Consolidate(target, &readd)
	if readd.SenderEmojis["u1"] != "😀" {
		t.Errorf("senders after re-add = %v", readd.SenderEmojis)
	}
}

func TestConsolidateCountBaselines(t *testing.T) {
	source := Reactions{
		SenderEmojis: map[string]string{"u1": "👍"},
		EmojiCounts:  map[string]int{"👍": 7},
	}

	t.Run("keeps source counts by default", func(t *testing.T) {
		target := Reactions{SenderEmojis: map[string]string{"u2": "❤️"}}
		Consolidate(source, &target)
		if target.EmojiCounts["👍"] != 7 {
			t.Errorf("counts = %v, want source baseline kept", target.EmojiCounts)
		}
	})

	t.Run("replaceCount trusts target counts", func(t *testing.T) {
		target := Reactions{
			SenderEmojis: map[string]string{"u2": "❤️"},
			EmojiCounts:  map[string]int{"❤️": 3},
			ReplaceCount: true,
		}
		Consolidate(source, &target)
		want := map[string]int{"❤️": 3}
		if !reflect.DeepEqual(target.EmojiCounts, want) {
			t.Errorf("counts = %v, want %v", target.EmojiCounts, want)
		}
	})

	t.Run("updateCountFromSenders overrides any baseline", func(t *testing.T) {
		target := Reactions{
			SenderEmojis:           map[string]string{"u2": "👍"},
			EmojiCounts:            map[string]int{"👍": 99},
			ReplaceCount:           true,
			UpdateCountFromSenders: true,
		}
		Consolidate(source, &target)
		// Tally of merged senders {u1:👍, u2:👍}.
		want := map[string]int{"👍": 2}
		if !reflect.DeepEqual(target.EmojiCounts, want) {
			t.Errorf("counts = %v, want %v", target.EmojiCounts, want)
		}
	})
}

func TestConsolidateClearsFlagsAndIsIdempotent(t *testing.T) {
	source := Reactions{SenderEmojis: map[string]string{"u1": "👍"}}
	target := Reactions{
		SenderEmojis:           map[string]string{"u2": "❤️"},
		NeedConsolidation:      true,
		UpdateCountFromSenders: true,
		ReplaceCount:           true,
	}
	Consolidate(source, &target)

	if target.NeedConsolidation || target.UpdateCountFromSenders || target.ReplaceCount {
		t.Error("control flags must be cleared on the merged value")
	}

	// Re-applying the merge to its own output is a no-op.
	again := target
	again.SenderEmojis = make(map[string]string, len(target.SenderEmojis))
	for k, v := range target.SenderEmojis {
		again.SenderEmojis[k] = v
	}
	Consolidate(target, &again)
	if !reflect.DeepEqual(again.SenderEmojis, target.SenderEmojis) ||
		!reflect.DeepEqual(again.EmojiCounts, target.EmojiCounts) {
		t.Errorf("re-merge changed the value: %+v vs %+v", again, target)
	}
}

func TestReactionsEncodingDropsFlags(t *testing.T) {
	r := Reactions{
		SenderEmojis:      map[string]string{"u1": "👍"},
		EmojiCounts:       map[string]int{"👍": 1},
		NeedConsolidation: true,
	}
	encoded, err := encodeReactions(r)
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := decodeReactions(encoded)
	if err != nil {
		t.Fatal(err)
	}
	if decoded.NeedConsolidation || decoded.UpdateCountFromSenders || decoded.ReplaceCount {
		t.Error("flags must never survive persistence")
	}
	if !reflect.DeepEqual(decoded.SenderEmojis, r.SenderEmojis) {
		t.Errorf("senders = %v", decoded.SenderEmojis)
	}
}

func TestReactionsDefaultEncodesEmpty(t *testing.T) {
	encoded, err := encodeReactions(Reactions{})
	if err != nil {
		t.Fatal(err)
	}
	if encoded != "" {
		t.Errorf("default value encoded as %q, want empty string", encoded)
	}
	decoded, err := decodeReactions("")
	if err != nil {
		t.Fatal(err)
	}
	if !decoded.IsDefault() {
		t.Error("empty string must decode to the default value")
	}
}

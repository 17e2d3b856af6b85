package loader

import (
	"encoding/json"
	"errors"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/OFFIS-RIT/consistency-vis/backend/pkg/common"
)

func TestDecodeDataset(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  common.Dataset
	}{
		{
			name:  "object",
			input: `{"id": "caps", "name": " Capitals ", "prompt": "Capital of France?", "model": "gpt-4o", "generations": ["Paris.", "It is Paris"]}`,
			want: common.Dataset{
				ID:          "caps",
				Name:        "Capitals",
				Prompt:      "Capital of France?",
				Model:       "gpt-4o",
				Generations: common.Corpus{"Paris.", "It is Paris"},
			},
		},
		{
			name:  "bare array",
			input: `  ["one fish", "two fish"] `,
			want:  common.Dataset{Generations: common.Corpus{"one fish", "two fish"}},
		},
		{
			name:  "trailing comma repaired",
			input: `{"prompt": "Name a colour", "generations": ["Red", "Blue",]}`,
			want:  common.Dataset{Prompt: "Name a colour", Generations: common.Corpus{"Red", "Blue"}},
		},
		{
			name:  "unquoted keys repaired",
			input: `{generations: ['alpha', 'beta']}`,
			want:  common.Dataset{Generations: common.Corpus{"alpha", "beta"}},
		},
		{
			name:  "empty generations are allowed",
			input: `{"generations": []}`,
			want:  common.Dataset{Generations: common.Corpus{}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeDataset([]byte(tt.input))
			if err != nil {
				t.Fatalf("DecodeDataset: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("DecodeDataset() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestDecodeDatasetInvalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "empty", input: "   "},
		{name: "missing generations", input: `{"prompt": "hi"}`},
		{name: "wrong type", input: `{"generations": "not a list"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeDataset([]byte(tt.input))
			if !errors.Is(err, ErrInvalidDataset) {
				t.Fatalf("expected ErrInvalidDataset, got %v", err)
			}
		})
	}
}

func TestDatasetSchema(t *testing.T) {
	b, err := json.Marshal(DatasetSchema())
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var schema map[string]any
	if err := json.Unmarshal(b, &schema); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	props, ok := schema["properties"].(map[string]any)
	if !ok {
		t.Fatalf("schema without properties: %s", b)
	}
	for _, key := range []string{"generations", "prompt", "name", "model"} {
		if _, ok := props[key]; !ok {
			t.Errorf("schema misses property %q", key)
		}
	}
	if !reflect.DeepEqual(schema["required"], []any{"generations"}) {
		t.Errorf("only generations should be required, got %v", schema["required"])
	}
	if schema["additionalProperties"] != false {
		t.Errorf("additional properties should be disallowed: %v", schema["additionalProperties"])
	}
}

func TestStripMarkup(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "plain text untouched", input: "Paris  is\nlovely", want: "Paris  is\nlovely"},
		{name: "tags removed", input: "<p>Paris is <b>lovely</b></p>", want: "Paris is lovely"},
		{name: "entities decoded", input: "Salt &amp; pepper", want: "Salt & pepper"},
		{name: "scripts dropped", input: "<div>Hi<script>alert(1)</script> there</div>", want: "Hi there"},
		{name: "list items separated", input: "<ul><li>red</li><li>blue</li></ul>", want: "red blue"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripMarkup(tt.input); got != tt.want {
				t.Fatalf("StripMarkup(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestStripDatasetMarkup(t *testing.T) {
	ds := common.Dataset{Generations: common.Corpus{"<i>one</i>", "two"}}
	StripDatasetMarkup(&ds)
	if !reflect.DeepEqual(ds.Generations, common.Corpus{"one", "two"}) {
		t.Fatalf("generations = %v", ds.Generations)
	}
}

func TestCacheDeduplicatesFetches(t *testing.T) {
	c := NewCache()

	var calls atomic.Int32
	release := make(chan struct{})
	fetch := func() ([]byte, error) {
		calls.Add(1)
		<-release
		return []byte("payload"), nil
	}

	var wg sync.WaitGroup
	results := make([][]byte, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			b, err := c.Get("key", fetch)
			if err != nil {
				t.Errorf("Get: %v", err)
			}
			results[i] = b
		}(i)
	}
	close(release)
	wg.Wait()

	for _, r := range results {
		if string(r) != "payload" {
			t.Fatalf("unexpected result %q", r)
		}
	}
	// callers arriving after the first fetch completed hit the map
	if n := calls.Load(); n < 1 || n > 8 {
		t.Fatalf("fetch called %d times", n)
	}

	before := calls.Load()
	if _, err := c.Get("key", fetch); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if calls.Load() != before {
		t.Fatalf("cached key fetched again")
	}
}

func TestCacheDoesNotKeepErrors(t *testing.T) {
	c := NewCache()
	errBoom := errors.New("boom")

	if _, err := c.Get("k", func() ([]byte, error) { return nil, errBoom }); !errors.Is(err, errBoom) {
		t.Fatalf("expected errBoom, got %v", err)
	}
	b, err := c.Get("k", func() ([]byte, error) { return []byte("ok"), nil })
	if err != nil || string(b) != "ok" {
		t.Fatalf("got (%q, %v)", b, err)
	}

	c.Forget("k")
	b, _ = c.Get("k", func() ([]byte, error) { return []byte("fresh"), nil })
	if string(b) != "fresh" {
		t.Fatalf("Forget did not drop the entry, got %q", b)
	}
}

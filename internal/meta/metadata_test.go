package meta

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"testing"

	"github.com/tinoosan/bizbooks/internal/errs"
)

func TestSetGetDelMergeClone(t *testing.T) {
	metaMap := New(nil)
	metaMap.Set("branch", "lhr")
	if value, ok := metaMap.Get("branch"); !ok || value != "lhr" {
		t.Fatalf("get failed")
	}
	metaMap.Merge(New(map[string]string{"fbr_pos_id": "123456"}))
	if value, ok := metaMap.Get("fbr_pos_id"); !ok || value != "123456" {
		t.Fatalf("merge failed")
	}
	cloned := metaMap.Clone()
	if len(cloned) != 2 || cloned["branch"] != "lhr" {
		t.Fatalf("clone failed: %+v", cloned)
	}
	metaMap.Del("branch")
	if _, ok := metaMap.Get("branch"); ok {
		t.Fatalf("del failed")
	}
	if _, ok := cloned.Get("branch"); !ok {
		t.Fatalf("clone shares storage with original")
	}
}

func TestSetIgnoresInvalidPairs(t *testing.T) {
	metaMap := New(nil)
	metaMap.Set("Bad Key", "v")
	metaMap.Set("ok_key", strings.Repeat("v", MaxValLen+1))
	if len(metaMap) != 0 {
		t.Fatalf("expected invalid pairs to be dropped: %+v", metaMap)
	}
}

func TestValidationLimits(t *testing.T) {
	pairs := make(map[string]string)
	for i := 0; i < MaxPairs+1; i++ {
		pairs["key_"+strconv.Itoa(i)] = "v"
	}
	if err := New(pairs).Validate(); err == nil {
		t.Fatalf("expected too many pairs")
	}

	err := New(map[string]string{"Not-A-Slug": "v"}).Validate()
	var fe errs.FieldError
	if !errors.As(err, &fe) || fe.Field != "metadata" {
		t.Fatalf("expected metadata field error, got %v", err)
	}

	if err := New(map[string]string{"ref": strings.Repeat("v", MaxValLen+1)}).Validate(); err == nil {
		t.Fatalf("expected value too long")
	}
}

func TestStableJSONAndRoundtrip(t *testing.T) {
	metaMap := New(map[string]string{"bb": "2", "aa": "1"})
	b1, _ := metaMap.MarshalStableJSON()
	if string(b1) != `{"aa":"1","bb":"2"}` {
		t.Fatalf("unexpected stable json: %s", string(b1))
	}
	var unmarshaled Metadata
	if err := json.Unmarshal(b1, &unmarshaled); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if err := unmarshaled.Validate(); err != nil {
		t.Fatalf("validate roundtrip: %v", err)
	}
	var empty Metadata
	if err := json.Unmarshal([]byte("null"), &empty); err != nil || empty == nil {
		t.Fatalf("null should decode to empty map: %v %v", empty, err)
	}
}

package time

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/matryer/is"
)

func TestMarshalJSON(t *testing.T) {
	is := is.New(t)
	testStruct := struct {
		D Duration `json:"d"`
	}{D: Duration(time.Second)}

	data, err := json.Marshal(&testStruct)
	is.NoErr(err)
	is.Equal(string(data), `{"d":"1s"}`)
}

func TestUnmarshalJSON(t *testing.T) {
	is := is.New(t)

	for in, exp := range map[string]Duration{
		`{"d":"1s"}`:    Duration(time.Second),
		`{"d":"1m30s"}`: Duration(90 * time.Second),
		`{"d":2}`:       Duration(2 * time.Second),
		`{"d":0.5}`:     Duration(500 * time.Millisecond),
	} {
		testStruct := struct {
			D Duration `json:"d"`
		}{}

		is.NoErr(json.Unmarshal([]byte(in), &testStruct))
		is.Equal(testStruct.D, exp)
	}

	var d Duration
	is.True(json.Unmarshal([]byte(`"soon"`), &d) != nil)
	is.True(json.Unmarshal([]byte(`true`), &d) != nil)
}

func TestStd(t *testing.T) {
	d := Duration(time.Second)
	if d.Std() != time.Second {
		t.Fatal("exp same type")
	}
}

func TestString(t *testing.T) {
	d := Duration(time.Second)
	if d.String() != "1s" {
		t.Fatal("exp 1s")
	}
}

func TestOr(t *testing.T) {
	is := is.New(t)
	is.Equal(Duration(0).Or(time.Minute), Duration(time.Minute))
	is.Equal(Duration(time.Second).Or(time.Minute), Duration(time.Second))
}

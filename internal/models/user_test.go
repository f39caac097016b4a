package models

import (
	"encoding/json"
	"testing"
)

func TestUser_RoundTripKeepsUnknownFields(t *testing.T) {
	in := `{"id":"u1","nickname":"sam","hospital":"St Mary","shifts":[1,2]}`
	var u User
	if err := json.Unmarshal([]byte(in), &u); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	out, err := json.Marshal(u)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got map[string]interface{}
	_ = json.Unmarshal(out, &got)
	if got["hospital"] != "St Mary" || got["nickname"] != "sam" || got["id"] != "u1" {
		t.Fatalf("fields lost in %s", out)
	}
}

func TestUser_DisplayName(t *testing.T) {
	if n := (User{FullName: "Sam Lee", Nickname: "sam"}).DisplayName(); n != "sam" {
		t.Fatalf("expected nickname, got %q", n)
	}
	if n := (User{Email: "s@x.io"}).DisplayName(); n != "s@x.io" {
		t.Fatalf("expected email fallback, got %q", n)
	}
}

func TestPatient_FieldVariants(t *testing.T) {
	var p Patient
	if err := json.Unmarshal([]byte(`{"patientID":"p2","name":"Bo","photo":"https://img/x.png","age":64}`), &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if p.ID != "p2" || p.Avatar != "https://img/x.png" || p.Age != 64 {
		t.Fatalf("unexpected patient %+v", p)
	}
}

package notify

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

func TestNotifyUsesNotifySend(t *testing.T) {
	var got []string
	n := New("", "Enigma")
	n.lookPath = func(string) (string, error) { return "/usr/bin/notify-send", nil }
	n.run = func(_ context.Context, name string, args ...string) error {
		got = append([]string{name}, args...)
		return nil
	}

	if err := n.Notify(context.Background(), "Listening..."); err != nil {
		t.Fatal(err)
	}
	want := []string{"notify-send", "-a", "Enigma", "-t", "2000", "Enigma", "Listening..."}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ran %v, want %v", got, want)
	}
}

func TestNotifyWithoutHelper(t *testing.T) {
	n := New("", "Enigma")
	n.lookPath = func(string) (string, error) { return "", errors.New("not found") }

	if err := n.Notify(context.Background(), "x"); !errors.Is(err, ErrNoNotifier) {
		t.Errorf("err = %v", err)
	}
}

func TestBeepWithoutSoundIsSilent(t *testing.T) {
	if err := New("", "Enigma").Beep(context.Background()); err != nil {
		t.Errorf("Beep = %v", err)
	}
	if err := New("/nonexistent/beep.mp3", "Enigma").Beep(context.Background()); err == nil {
		t.Error("missing beep file must fail")
	}
}

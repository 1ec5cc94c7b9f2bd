package media

import "testing"

func TestDetectKindFromMIME(t *testing.T) {
	cases := []struct {
		mimeType string
		fileName string
		want     Kind
	}{
		{"image/jpeg", "photo.jpg", KindImage},
		{"video/mp4", "clip.mp4", KindVideo},
		{"audio/ogg; codecs=opus", "voice.ogg", KindAudio},
		{"application/pdf", "statement.pdf", KindDocument},
	}
	for _, tc := range cases {
		if got := DetectKind(tc.mimeType, tc.fileName); got != tc.want {
			t.Errorf("DetectKind(%q, %q) = %s, want %s", tc.mimeType, tc.fileName, got, tc.want)
		}
	}
}

func TestDetectKindFallsBackToExtension(t *testing.T) {
	cases := []struct {
		fileName string
		want     Kind
	}{
		{"recording.opus", KindAudio},
		{"capture.mkv", KindVideo},
		{"evidence.heic", KindImage},
		{"notes.txt", KindDocument},
		{"noextension", KindDocument},
	}
	for _, tc := range cases {
		if got := DetectKind("", tc.fileName); got != tc.want {
			t.Errorf("DetectKind(\"\", %q) = %s, want %s", tc.fileName, got, tc.want)
		}
	}
}

func TestMIMEForExtension(t *testing.T) {
	if got := MIMEForExtension("photo.png"); got != "image/png" {
		t.Fatalf("unexpected mime %q", got)
	}
	if got := MIMEForExtension("capture.mkv"); got != "video/x-matroska" {
		t.Fatalf("unexpected mime %q", got)
	}
	if got := MIMEForExtension("mystery"); got != "application/octet-stream" {
		t.Fatalf("unexpected mime %q", got)
	}
}

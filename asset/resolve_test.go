package asset

import "testing"

func TestDeriveHandle(t *testing.T) {
	tests := []struct {
		name   string
		url    string
		handle string
		ok     bool
	}{
		{"remote image", "https://res.cloudinary.com/demo/image/upload/v1712345678/app/posts/abc123.jpg", "app/posts/abc123", true},
		{"nested folder", "https://cdn.example.com/upload/v1/app/profile-pics/2026/x.y.png", "app/profile-pics/2026/x.y", true},
		{"no extension", "https://cdn.example.com/upload/v42/app/stories/raw", "app/stories/raw", true},
		{"query string ignored", "https://cdn.example.com/upload/v3/app/events/e.webp?w=200", "app/events/e", true},
		{"relative path", "/upload/v9/app/businesses/b.png", "app/businesses/b", true},
		{"local placeholder", "/images/default-profile.png", "", false},
		{"missing version", "https://cdn.example.com/upload/app/posts/abc.jpg", "", false},
		{"bad version", "https://cdn.example.com/upload/vX1/app/posts/abc.jpg", "", false},
		{"nothing after version", "https://cdn.example.com/upload/v1", "", false},
		{"only an extension", "https://cdn.example.com/upload/v1/.jpg", "", false},
		{"no upload segment", "https://cdn.example.com/media/v1/app/posts/abc.jpg", "", false},
		{"uploads is not upload", "https://cdn.example.com/uploads/v1/app/posts/abc.jpg", "", false},
		{"empty", "", "", false},
		{"garbage", "::://bad url", "", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			handle, ok := DeriveHandle(tc.url)
			if ok != tc.ok || handle != tc.handle {
				t.Fatalf("DeriveHandle(%q) = (%q, %v), want (%q, %v)", tc.url, handle, ok, tc.handle, tc.ok)
			}
		})
	}
}

func TestDeriveHandle_Deterministic(t *testing.T) {
	url := "https://res.cloudinary.com/demo/video/upload/v1/app/posts/clip.mp4"

	first, ok1 := DeriveHandle(url)
	second, ok2 := DeriveHandle(url)
	if first != second || ok1 != ok2 {
		t.Fatalf("expected identical results, got (%q,%v) and (%q,%v)", first, ok1, second, ok2)
	}
}

func TestDeriveKind(t *testing.T) {
	tests := []struct {
		url  string
		want Kind
	}{
		{"https://res.cloudinary.com/demo/video/upload/v1/app/posts/clip.mp4", KindVideo},
		{"https://res.cloudinary.com/demo/raw/upload/v1/app/posts/doc.pdf", KindRaw},
		{"https://cdn.example.com/upload/v1/app/posts/clip.mp4", KindVideo},
		{"https://cdn.example.com/upload/v1/app/posts/pic.png", KindImage},
		{"https://cdn.example.com/upload/v1/app/posts/unknown", KindImage},
	}

	for _, tc := range tests {
		if got := DeriveKind(tc.url); got != tc.want {
			t.Fatalf("DeriveKind(%q) = %q, want %q", tc.url, got, tc.want)
		}
	}
}

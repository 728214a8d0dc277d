package upstream

import "testing"

func TestBuildURL(t *testing.T) {
	tests := []struct {
		name string
		e    Endpoint
		path string
		want string
	}{
		{
			name: "self-hosted bare base",
			e:    Endpoint{BaseURL: "https://relay.voxrelay.io", Kind: KindSelfHosted},
			path: "/chat/completions",
			want: "https://relay.voxrelay.io/openai/chat/completions",
		},
		{
			name: "self-hosted trailing slash",
			e:    Endpoint{BaseURL: "https://relay.voxrelay.io/", Kind: KindSelfHosted},
			path: "/chat/completions",
			want: "https://relay.voxrelay.io/openai/chat/completions",
		},
		{
			name: "self-hosted base already carries mount",
			e:    Endpoint{BaseURL: "https://relay.voxrelay.io/openai", Kind: KindSelfHosted},
			path: "/chat/completions",
			want: "https://relay.voxrelay.io/openai/chat/completions",
		},
		{
			name: "self-hosted base already complete",
			e:    Endpoint{BaseURL: "https://relay.voxrelay.io/openai/chat/completions", Kind: KindSelfHosted},
			path: "/chat/completions",
			want: "https://relay.voxrelay.io/openai/chat/completions",
		},
		{
			name: "path proxy",
			e:    Endpoint{BaseURL: "https://proxy.vendor-a.dev", Kind: KindPathProxy},
			path: "/chat/completions",
			want: "https://proxy.vendor-a.dev/openai/chat/completions",
		},
		{
			name: "query proxy appends upstream suffix only",
			e:    Endpoint{BaseURL: "https://pass.vendor-b.dev/?url=https://api.openai.com/v1", Kind: KindQueryProxy},
			path: "/chat/completions",
			want: "https://pass.vendor-b.dev/?url=https://api.openai.com/v1/chat/completions",
		},
		{
			name: "wrap proxy",
			e:    Endpoint{BaseURL: "https://wrap.vendor-c.dev/raw?target=https://api.openai.com/v1", Kind: KindWrapProxy},
			path: "/chat/completions",
			want: "https://wrap.vendor-c.dev/raw?target=https://api.openai.com/v1/chat/completions",
		},
		{
			name: "direct",
			e:    Endpoint{BaseURL: "https://api.openai.com", Kind: KindDirect},
			path: "/chat/completions",
			want: "https://api.openai.com/v1/chat/completions",
		},
		{
			name: "direct with v1 base",
			e:    Endpoint{BaseURL: "https://api.openai.com/v1", Kind: KindDirect},
			path: "/chat/completions",
			want: "https://api.openai.com/v1/chat/completions",
		},
		{
			name: "missing leading slash on path",
			e:    Endpoint{BaseURL: "https://relay.voxrelay.io", Kind: KindSelfHosted},
			path: "chat/completions",
			want: "https://relay.voxrelay.io/openai/chat/completions",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildURL(tt.e, tt.path)
			if got != tt.want {
				t.Errorf("BuildURL() = %q, want %q", got, tt.want)
			}

			// Idempotency: rebuilding from the output must not double
			// any segment.
			again := BuildURL(Endpoint{BaseURL: got, Kind: tt.e.Kind}, tt.path)
			if again != got {
				t.Errorf("BuildURL not idempotent: %q -> %q", got, again)
			}
		})
	}
}

package auth

import "testing"

func TestExtractCredential(t *testing.T) {
	tests := []struct {
		name   string
		header string
		query  string
		want   Credential
	}{
		{
			name: "nothing supplied",
			want: Credential{Source: SourceNone},
		},
		{
			name:   "bearer header",
			header: "Bearer secret123",
			want:   Credential{Token: "secret123", Source: SourceHeader},
		},
		{
			name:   "header without scheme",
			header: "secret123",
			want:   Credential{Token: "secret123", Source: SourceHeader},
		},
		{
			name:  "query only",
			query: "secret123",
			want:  Credential{Token: "secret123", Source: SourceQuery},
		},
		{
			name:   "header preferred over query",
			header: "Bearer from-header",
			query:  "from-query",
			want:   Credential{Token: "from-header", Source: SourceHeader},
		},
		{
			name:   "empty bearer still wins",
			header: "Bearer ",
			query:  "from-query",
			want:   Credential{Token: "", Source: SourceHeader},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractCredential(tt.header, tt.query)
			if got != tt.want {
				t.Errorf("ExtractCredential(%q, %q) = %+v, want %+v", tt.header, tt.query, got, tt.want)
			}
		})
	}
}

func TestAuthenticate(t *testing.T) {
	tests := []struct {
		name       string
		token      string
		secret     string
		authorized bool
		reason     Reason
	}{
		{"match", "secret123", "secret123", true, ReasonNone},
		{"mismatch", "wrong", "secret123", false, ReasonInvalidToken},
		{"missing token", "", "secret123", false, ReasonMissingToken},
		{"secret unset", "anything", "", false, ReasonSecretUnset},
		{"both empty", "", "", false, ReasonSecretUnset},
		{"prefix of secret", "secret", "secret123", false, ReasonInvalidToken},
		{"case differs", "SECRET123", "secret123", false, ReasonInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Authenticate(Credential{Token: tt.token, Source: SourceHeader}, tt.secret)
			if d.Authorized != tt.authorized {
				t.Errorf("Authorized = %v, want %v", d.Authorized, tt.authorized)
			}
			if d.Reason != tt.reason {
				t.Errorf("Reason = %q, want %q", d.Reason, tt.reason)
			}
		})
	}
}

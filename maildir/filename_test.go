package maildir

import (
	"testing"

	"github.com/emersion/go-maildir"
)

func TestIsEligible(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"msg1,S=100:2,", true},
		{"msg1,S=100:2,S", true},
		{"1705678901.M1P2.host,S=4096,W=4200:2,RS", true},
		{"msg2,S=50:2,Z", false},
		{"msg2,S=50:2,SZ", false},
		{"msg2,S=50:2,Za", false},
		{"msg2,S=50:2,Sab", true},
		{"msg3:2,S", false},
		{"1705678901.M1P2.host", false},
		{"dovecot-uidlist", false},
		{",S=", false},
		{",S=1", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsEligible(tt.name); got != tt.want {
				t.Errorf("IsEligible(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestCompressedName(t *testing.T) {
	if got := CompressedName("msg1,S=100:2,"); got != "msg1,S=100:2,Z" {
		t.Fatalf("CompressedName = %q", got)
	}
	if IsEligible(CompressedName("msg1,S=100:2,S")) {
		t.Fatal("compressed name must not be eligible")
	}
}

func TestParseFilename(t *testing.T) {
	f := ParseFilename("1705678901.M1P2.host,S=4096,W=4200:2,RSZ")
	if f.Key != "1705678901.M1P2.host,S=4096,W=4200" {
		t.Errorf("Key = %q", f.Key)
	}
	if f.Size != 4096 {
		t.Errorf("Size = %d, want 4096", f.Size)
	}
	if !f.HasFlag(maildir.FlagReplied) || !f.HasFlag(maildir.FlagSeen) || !f.HasFlag(FlagCompressed) {
		t.Errorf("Flags = %q", string(f.Flags))
	}
	if f.HasFlag(maildir.FlagTrashed) {
		t.Error("unexpected trashed flag")
	}
}

func TestParseFilenameWithoutInfo(t *testing.T) {
	f := ParseFilename("1705678901.M1P2.host")
	if f.Key != "1705678901.M1P2.host" || f.Size != -1 || len(f.Flags) != 0 {
		t.Fatalf("unexpected parse: %+v", f)
	}
}

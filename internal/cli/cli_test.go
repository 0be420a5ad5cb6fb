package cli

import (
	"testing"
)

func TestNewRootCmd_Subcommands(t *testing.T) {
	root := NewRootCmd()
	for _, name := range []string{"shell", "devbackend", "discover"} {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Fatalf("Find(%q) = %v, %v", name, cmd, err)
		}
	}
}

func TestGlobalFlags(t *testing.T) {
	root := NewRootCmd()
	if err := root.ParseFlags([]string{"-vv", "--backend", "10.0.0.2:7488", "--config", "/tmp/c.toml"}); err != nil {
		t.Fatalf("ParseFlags returned error: %v", err)
	}
	v, err := root.PersistentFlags().GetCount("verbose")
	if err != nil || v != 2 {
		t.Fatalf("verbose = %d, %v, want 2", v, err)
	}
	if got, _ := root.PersistentFlags().GetString("backend"); got != "10.0.0.2:7488" {
		t.Fatalf("backend = %q", got)
	}
	if got, _ := root.PersistentFlags().GetString("config"); got != "/tmp/c.toml" {
		t.Fatalf("config = %q", got)
	}
}

func TestDevBackendDefaults(t *testing.T) {
	cmd, _, err := NewRootCmd().Find([]string{"devbackend"})
	if err != nil {
		t.Fatalf("Find(devbackend) returned error: %v", err)
	}
	if got, _ := cmd.Flags().GetString("addr"); got != "127.0.0.1:7488" {
		t.Fatalf("addr default = %q", got)
	}
	if announce, _ := cmd.Flags().GetBool("announce"); announce {
		t.Fatalf("announce defaults to true")
	}
}

func TestRootRejectsArgs(t *testing.T) {
	root := NewRootCmd()
	root.SetArgs([]string{"unexpected"})
	if err := root.Execute(); err == nil {
		t.Fatalf("Execute with a stray argument returned nil error")
	}
}

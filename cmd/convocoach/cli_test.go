package main

import (
	"os"
	"path/filepath"
	"testing"

	"convocoach/internal/conversation"
	"convocoach/internal/testsupport"
)

func TestConfigInitAndShow(t *testing.T) {
	env := setupCLITestEnv(t)

	target := filepath.Join(env.baseDir, "fresh-config.toml")
	out, _, err := runCLI(t, "", "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	// A second init without --overwrite refuses to clobber the file.
	if _, _, err := runCLI(t, "", "config", "init", "--path", target); err == nil {
		t.Fatal("expected init over existing file to fail")
	}
	if _, _, err := runCLI(t, "", "config", "init", "--path", target, "--overwrite"); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}

	out, _, err = runCLI(t, env.configPath, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, env.cfg.Paths.DataDir)
	requireContains(t, out, "Analysis enabled: no")
}

func TestCatalogShow(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, env.configPath, "catalog", "show")
	if err != nil {
		t.Fatalf("catalog show: %v", err)
	}
	requireContains(t, out, "Catalog version:")
	requireContains(t, out, "compliance_violations")
	requireContains(t, out, "Compliance Violations")
}

func TestProcessAndInspectFlow(t *testing.T) {
	env := setupCLITestEnv(t)

	transcript := testsupport.SampleTranscript("conv-cli-1",
		conversation.Turn{Index: 0, Speaker: conversation.SpeakerAgent, Text: "Pay up or we will garnish your wages.", StartOffsetSec: 0},
		conversation.Turn{Index: 1, Speaker: conversation.SpeakerCustomer, Text: "I want to file a complaint.", StartOffsetSec: 6},
	)
	metadata := testsupport.SampleMetadata("conv-cli-1")
	uri := testsupport.WriteArtifacts(t, env.cfg.Paths.ArtifactRoot, "calls/conv-cli-1", transcript, metadata)

	out, _, err := runCLI(t, env.configPath, "process", "conv-cli-1", uri)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	requireContains(t, out, "conv-cli-1 processed")
	requireContains(t, out, "AGENT_COMPLIANCE_VIOLATION")
	requireContains(t, out, "CUSTOMER_ESCALATION")

	out, _, err = runCLI(t, env.configPath, "registry", "list")
	if err != nil {
		t.Fatalf("registry list: %v", err)
	}
	requireContains(t, out, "conv-cli-1")
	requireContains(t, out, "ENRICHED")

	out, _, err = runCLI(t, env.configPath, "registry", "show", "conv-cli-1")
	if err != nil {
		t.Fatalf("registry show: %v", err)
	}
	requireContains(t, out, "Status:       ENRICHED")
	requireContains(t, out, "Compliance Violations")

	out, _, err = runCLI(t, env.configPath, "coach", "conv-cli-1")
	if err != nil {
		t.Fatalf("coach: %v", err)
	}
	requireContains(t, out, "COACHED")
}

func TestIngestFailureSurfacesReset(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := runCLI(t, env.configPath, "ingest", "conv-cli-2", "calls/missing"); err == nil {
		t.Fatal("expected ingest of missing artifacts to fail")
	}

	out, _, err := runCLI(t, env.configPath, "registry", "list", "--status", "FAILED_INGEST")
	if err != nil {
		t.Fatalf("registry list: %v", err)
	}
	requireContains(t, out, "conv-cli-2")

	out, _, err = runCLI(t, env.configPath, "reset", "conv-cli-2")
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	requireContains(t, out, "reset to NEW")
}

func TestRegistryListJSON(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, env.configPath, "registry", "list", "--json")
	if err != nil {
		t.Fatalf("registry list --json: %v", err)
	}
	requireContains(t, out, "[]")
}

func TestUnknownStatusFilterRejected(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := runCLI(t, env.configPath, "registry", "list", "--status", "BOGUS"); err == nil {
		t.Fatal("expected unknown status filter to fail")
	}
}

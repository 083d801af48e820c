package llm

import (
	"strings"
	"testing"

	"zyberfy/internal/repo"
)

func TestBuildPromptIsDeterministic(t *testing.T) {
	s := repo.AutomationSettings{
		Tone:        "friendly",
		Length:      LengthConcise,
		FirstName:   "Amira",
		Position:    "Founder",
		CompanyName: "Acme Studio",
		Greeting:    "Hey",
		Footer:      "Best,\nAmira",
	}
	p := repo.Proposal{
		LeadName: "Jordan",
		Message:  "We need a brand refresh.",
		Services: "Branding",
		Budget:   "$10k",
	}

	first := BuildPrompt(s, p)
	second := BuildPrompt(s, p)
	if first != second {
		t.Fatal("prompt differs between identical inputs")
	}
}

func TestBuildPromptConciseInstruction(t *testing.T) {
	s := repo.AutomationSettings{Length: LengthConcise}
	got := BuildPrompt(s, repo.Proposal{LeadName: "Jordan"})

	if !strings.Contains(got, "Keep it brief and to the point") {
		t.Fatalf("missing concise instruction:\n%s", got)
	}
	if strings.Contains(got, "elaborate with a persuasive tone") {
		t.Fatalf("elaborate instruction leaked into concise prompt:\n%s", got)
	}
}

func TestBuildPromptElaborateIsDefault(t *testing.T) {
	for _, length := range []string{"", LengthElaborate, "unknown"} {
		got := BuildPrompt(repo.AutomationSettings{Length: length}, repo.Proposal{LeadName: "Jordan"})
		if !strings.Contains(got, "Feel free to elaborate with a persuasive tone") {
			t.Fatalf("length %q: missing elaborate instruction:\n%s", length, got)
		}
	}
}

func TestBuildPromptIncludesIdentityAndLead(t *testing.T) {
	s := repo.AutomationSettings{
		FirstName:   "Amira",
		Position:    "Founder",
		CompanyName: "Acme Studio",
		Greeting:    "Hey",
	}
	p := repo.Proposal{
		LeadName: "Jordan",
		Message:  "We need a brand refresh.",
	}
	got := BuildPrompt(s, p)

	for _, want := range []string{
		"Amira, Founder at Acme Studio",
		"Start the email with: Hey Jordan",
		`"We need a brand refresh."`,
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("prompt missing %q:\n%s", want, got)
		}
	}
}

func TestBuildPromptDefaultsGreetingAndIdentity(t *testing.T) {
	got := BuildPrompt(repo.AutomationSettings{}, repo.Proposal{LeadName: "Jordan"})

	if !strings.Contains(got, "the business owner") {
		t.Fatalf("missing identity fallback:\n%s", got)
	}
	if !strings.Contains(got, "Start the email with: Hi Jordan") {
		t.Fatalf("missing greeting fallback:\n%s", got)
	}
}

package llm

import (
	"fmt"
	"strings"

	"zyberfy/internal/repo"
)

// Length modes recognised on automation settings.
const (
	LengthConcise   = "concise"
	LengthElaborate = "elaborate"
)

// BuildPrompt assembles the completion prompt from the tenant's automation
// settings and the lead fields captured on the proposal. The layout is
// fixed so identical inputs always produce an identical prompt.
func BuildPrompt(s repo.AutomationSettings, p repo.Proposal) string {
	var b strings.Builder

	b.WriteString("You are a professional proposal writer replying on behalf of ")
	if s.FirstName != "" {
		b.WriteString(s.FirstName)
	} else {
		b.WriteString("the business owner")
	}
	if s.Position != "" {
		fmt.Fprintf(&b, ", %s", s.Position)
	}
	if s.CompanyName != "" {
		fmt.Fprintf(&b, " at %s", s.CompanyName)
	}
	b.WriteString(". Write a branded proposal email for the inquiry below, staying on the company's voice.\n\n")

	if s.Tone != "" {
		fmt.Fprintf(&b, "Tone: %s\n", s.Tone)
	}
	if s.AITraining != "" {
		fmt.Fprintf(&b, "Voice guidance: %s\n", s.AITraining)
	}
	fmt.Fprintf(&b, "Length: %s. %s\n\n", lengthMode(s.Length), lengthInstruction(s.Length))

	if s.Subject != "" {
		fmt.Fprintf(&b, "Subject: %s\n", s.Subject)
	}
	greeting := s.Greeting
	if greeting == "" {
		greeting = "Hi"
	}
	fmt.Fprintf(&b, "Start the email with: %s %s\n", greeting, p.LeadName)
	fmt.Fprintf(&b, "Respond directly to their message: %q\n", p.Message)

	if p.Services != "" {
		fmt.Fprintf(&b, "Services requested: %s\n", p.Services)
	}
	if p.Budget != "" {
		fmt.Fprintf(&b, "Stated budget: %s\n", p.Budget)
	}
	if p.Timeline != "" {
		fmt.Fprintf(&b, "Timeline: %s\n", p.Timeline)
	}

	if s.Footer != "" {
		fmt.Fprintf(&b, "\nClose the email with:\n%s\n", s.Footer)
	}

	return b.String()
}

func lengthMode(length string) string {
	if length == LengthConcise {
		return LengthConcise
	}
	return LengthElaborate
}

func lengthInstruction(length string) string {
	if length == LengthConcise {
		return "Keep it brief and to the point"
	}
	return "Feel free to elaborate with a persuasive tone"
}

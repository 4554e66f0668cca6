package pipeline

import "fmt"

const apology = "I apologize, but I couldn't generate a response. Please try rephrasing your question."

// synthesisFallback replaces a blank answer from the second model call.
func synthesisFallback(citations int) string {
	if citations == 0 {
		return apology
	}
	return fmt.Sprintf("Based on the search results I found, here's what I can tell you about your query. "+
		"I found %d relevant sources that should help answer your question.", citations)
}

// runFallback replaces a blank answer at the end of a run.
func runFallback(citations int) string {
	if citations == 0 {
		return apology
	}
	return fmt.Sprintf("Based on my search, I found %d relevant sources that should help answer your question.", citations)
}

func agentApology(err error) string {
	return fmt.Sprintf("I apologize, but I encountered an error while processing your request: %v. "+
		"Please try again or rephrase your question.", err)
}

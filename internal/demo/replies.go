package demo

import "strings"

type cannedReply struct {
	keywords []string
	text     string
}

var cannedReplies = []cannedReply{
	{
		keywords: []string{"proposal", "propose"},
		text:     "A strong FYDP proposal should clearly articulate your research question, methodology, and expected contributions. Make sure to align with your advisor's expertise and the program requirements.",
	},
	{
		keywords: []string{"timeline", "schedule"},
		text:     "A typical FYDP timeline spans two semesters. Plan for proposal submission in the first semester, followed by implementation and documentation in the second semester. Always build in buffer time for unexpected challenges.",
	},
	{
		keywords: []string{"technology", "tech", "stack"},
		text:     "Choose technologies based on your project requirements. Consider factors like scalability, maintainability, team expertise, and project constraints. Popular stacks include MERN, Python/Django, and React/Node.js.",
	},
}

const defaultReply = "I'm here to help with your FYDP journey! I can assist with proposal writing, project planning, technical decisions, and more. What specific area would you like guidance on?"

// Reply подбирает ответ ассистента по ключевым словам; первое совпадение выигрывает.
func Reply(message string) string {
	lower := strings.ToLower(message)
	for _, r := range cannedReplies {
		for _, kw := range r.keywords {
			if strings.Contains(lower, kw) {
				return r.text
			}
		}
	}
	return defaultReply
}

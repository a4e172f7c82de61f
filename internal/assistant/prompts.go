package assistant

// languageData holds per-language system prompts and canned phrases.
type languageData struct {
	System   string
	Greeting string
	Error    string
	Fallback string
}

var languagePrompts = map[string]languageData{
	LangEnglish: {
		System: "You are a helpful assistant for an event ticketing system. " +
			"You help users with ticket purchases, event information, and support. " +
			"Be polite, concise, and professional in your responses.",
		Greeting: "Hello! How can I assist you with your ticketing needs today?",
		Error:    "I'm sorry, I encountered an error processing your request. Please try again later.",
		Fallback: "I'm not sure how to respond to that. Could you rephrase or ask about something else?",
	},
	LangAmharic: {
		System: "እርስዎ የቲኬት ስርዓት ረዳት ነዎት። ተጠቃሚዎችን በቲኬት ግዢ፣ በክስተት መረጃ እና በድጋፍ ይርዳሉ። " +
			"በክብር እና በጥሞና መልስ መስጠት ይጠበቅብዎታል።",
		Greeting: "ሰላም! ስለ ቲኬቶች እንዴት ልርዱዎ?",
		Error:    "ይቅርታ፣ ጥያቄዎን በሚያስተናግዱበት ጊዜ ስህተት ተከስቷል። እባክዎ ቆይተው ይሞክሩ።",
		Fallback: "ለዚህ ጥያቄ መልስ ማግኘት አልቻልኩም። እባክዎ ይልቁን ይጨምሩ ወይም ሌላ ነገር ይጠይቁ።",
	},
	LangKrio: {
		System: "Yu na wan gud yonman we de help pan di tikiting sistem. Yu de help pipul fo bai tikit, " +
			"fo get infomeshon bout ivent, en fo get help. Mek yu ansa gud en na gud maner.",
		Greeting: "Kushe! Ow na? Awan mek a help yu wit yu tikit tin dem?",
		Error:    "A beg yu padi, someting bad don hapun. Try back small time.",
		Fallback: "A no kin andastand wetin yu de tok. Try tok am anoda way.",
	},
}

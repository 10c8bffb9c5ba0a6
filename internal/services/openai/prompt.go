package openai

// TitleSummaryPrompt captures the instructions sent to the chat endpoint
// when deriving a title and summary from a transcript. Keep updates
// centralized here so it is easy to tweak without hunting through call
// sites.
const TitleSummaryPrompt = `You are going to generate a title and a short description for a screen recording from its speech-to-text transcript.

Rules:

- The title should be concise, at most ten words, and describe what the recording is about.

- The summary should be two to three sentences written for a viewer deciding whether to watch.

- Do not invent content that is not supported by the transcript.

You must respond ONLY with a JSON object like: {"title": "<the title>", "summary": "<the summary>"}

The transcript follows in the next message.`

package gateway

// --- Transcriber Model Prompts ---
const TranscriberSystemPrompt = "You are a lecture transcription service. You transcribe classroom audio verbatim in English and output only the transcript text."
const TranscriberUserPrompt = "Do the exact english transcription of the audio"

// --- Summarizer Model Prompts ---
const SummarizerSystemPrompt = "You are a teaching assistant who writes short, accurate summaries of lecture transcripts for students."
const SummarizerUserPrompt = `Please provide a concise summary of the following lecture transcript:

%s

Focus on the main concepts and key takeaways.`

// --- Question Generator Model Prompts ---
const QuestionSystemPrompt = "You are a teaching assistant who writes study questions about a lecture. You must output your response as a valid JSON array."
const QuestionUserPrompt = `Based on the following lecture content, generate %d relevant questions that could help clarify or deepen understanding of the material, along with suggested answers.

Lecture content:
%s

Return exactly %d items. Each item is a JSON object with exactly two keys:
- "question": the question text, ending with a question mark.
- "answer": a short suggested answer.

The output MUST be a single valid JSON array of these objects with no text before or after it.`

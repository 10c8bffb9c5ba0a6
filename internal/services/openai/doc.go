// Package openai calls the speech-to-text and chat completion endpoints
// used to derive a transcript, title, and summary for PRO recordings.
package openai

// Package model defines the normalized request/response structures shared by
// all provider adapters plus the Model interface and the synchronous Handler
// unit that wrap-style middleware composes around. Provider adapters live in
// subpackages (openai, anthropic).
package model

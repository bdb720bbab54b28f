// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - EmbeddingService: Turns text into vectors
//   - LLMService: Generates and streams answers
//   - VectorIndex: Per-session nearest-neighbour search
//   - KeyValueStore: Persistent embedding and quiz cache
//   - NormaliserRegistry: Turns raw bytes into documents
//   - PostProcessorPipeline: Splits documents into chunks
//   - ConfigStore, PromptStore: Settings and prompt templates
//
// # Optional Interfaces
//
// These can be nil - the matching feature reports an unavailable error:
//
//   - Transcriber, AudioProcessor: Meeting transcription
//   - SiteFetcher: Sitemap crawling
//   - Encyclopedia: Quiz topics
//   - MarketData, WebSearch: Investment research tools
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or normaliser package
package driven

package model

// Package model defines the domain data structures shared across the bot:
// stream descriptors mapped from the extractor, download artifacts, and the
// per-user selection flow stages.

// Package domain holds the types shared by the ingestion and recommendation
// pipelines: video records, their metadata, analysis jobs and recommendation
// pages, plus the error taxonomy every layer reports through.
package domain

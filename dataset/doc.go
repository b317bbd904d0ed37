// Package dataset resolves the three files of a benchmark dataset and
// decodes them. Roots of the form s3://bucket/prefix are downloaded into a
// local cache first.
package dataset

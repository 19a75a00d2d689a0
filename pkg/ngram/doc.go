/*
Package ngram builds n-gram language models from plain text and generates
new sentences by sampling observed token transitions.

The pipeline runs in four steps: a Tokenizer splits text into sentences of
lowercase tokens, Extract turns sentences into fixed-length windows padded
with StartMarker and EndMarker, a Model counts those windows into a frequency
table, and Generate walks the model from the start context until the end
marker is drawn.

Sampling draws an integer in the closed range [0, total] over a context
family and walks the family in insertion order. The first candidate is
therefore picked with one extra unit of weight compared to a textbook
weighted sample.
*/
package ngram

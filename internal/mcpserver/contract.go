package mcpserver

// NoteModel describes how smart-notes stores and derives notes, for LLM
// consumers deciding which tool arguments to pass.
const NoteModel = `# smart-notes Note Model

A note is free text plus fields derived from it. Only ` + "`content`" + ` is required
when creating a note; everything else is filled in unless you override it.

## Derived fields

- **title**: the first sentence, cut to 60 characters.
- **summary**: the first and last sentences of at least 10 characters, joined
  with "... ", at most 200 characters.
- **keywords**: up to 8 frequent words of 4+ letters, stop words removed.
- **metadata.wordCount**, **metadata.sentiment** (-1..1),
  **metadata.readabilityScore** (0..100), **metadata.language** (` + "`tr`" + ` or ` + "`en`" + `).

Updating ` + "`content`" + ` re-derives keywords and metrics, and also title and summary
unless you pass them in the same call.

## Identifiers

Every note has two ids. Either one is accepted wherever a tool asks for ` + "`id`" + `:

- the store id (` + "`_id`" + `), assigned by the document store;
- the application id (` + "`id`" + `), of the form ` + "`note_<unix ms>_<suffix>`" + `.

## Expiry

Notes expire three months after creation (or after the last ` + "`extend_note`" + `).
Expired notes are hidden from listing and search but can still be read by id.
` + "`extend_note`" + ` restarts the window from now and revives an expired note.

## AI provenance

Notes saved from an AI suggestion carry ` + "`metadata.aiMetadata`" + ` with the suggested
title and summary. Once the saved title, summary or content differs from the
suggestion, ` + "`userEdited`" + ` becomes true and stays true.
`

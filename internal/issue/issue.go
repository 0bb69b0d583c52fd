// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"cmp"
	"slices"
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/maps"
)

const (
	DownloadFailedId Id = iota + 1
	CorruptArchiveId
	MemberNotFoundId
	ChecksumMismatchId
	ConfigLoadFailedId
	InvalidConfigId
	SourceNotFoundId
	MarkerNotFoundId
	OutputWriteFailedId
)

type (
	Id int

	MarkdownMsg string

	HttpLink string

	Issue struct {
		id       Id          // ID used to lookup the issue
		mdMsg    MarkdownMsg // Markdown text that will be rendered
		docLinks []HttpLink  // project documentation about this issue
		extLinks []HttpLink  // external links that might be useful for the user
	}
)

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

// Title returns the text of the first Markdown heading, without its
// trailing punctuation.
func (i *Issue) Title() string {
	for line := range strings.Lines(string(i.mdMsg)) {
		if title, ok := strings.CutPrefix(strings.TrimSpace(line), "# "); ok {
			return strings.TrimRight(title, "!.")
		}
	}
	return ""
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

// Render turns the issue into terminal-styled text. stylePath is a glamour
// style name ("dark", "light", "notty") or a path to a JSON style file.
func (i *Issue) Render(stylePath string) (string, error) {
	extraMd := ""
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		extraMd += "\n\n## See also:\n"
		for _, link := range i.docLinks {
			extraMd += "- <" + string(link) + ">\n"
		}
		for _, link := range i.extLinks {
			extraMd += "- <" + string(link) + ">\n"
		}
	}
	return render(string(i.mdMsg)+extraMd, stylePath)
}

var (
	render = glamour.Render

	downloadFailedIssue = &Issue{
		id: DownloadFailedId,
		mdMsg: `
# Could not download the archive!

The library archive could not be retrieved. Nothing was written.

## Things you can try:
- Check your network connection and any proxy settings
- Open the archive URL in a browser to confirm it exists
- For npm packages, make sure the version is published:
~~~
$ npm view <package> versions
~~~

- Increase the download timeout:
~~~
$ bundler build --timeout 5m
~~~`,
		extLinks: []HttpLink{"https://docs.npmjs.com/cli/v10/commands/npm-view"},
	}

	corruptArchiveIssue = &Issue{
		id: CorruptArchiveId,
		mdMsg: `
# The archive is not a valid gzip tarball!

The download finished, but the content could not be read as a gzip
compressed tar archive. Servers sometimes answer with an HTML error page or
a truncated body.

## Things you can try:
- Check that the URL points at a ` + "`.tgz`" + ` or ` + "`.tar.gz`" + ` file
- Retry the build; a truncated download usually succeeds the second time
- Pin the archive with a ` + "`sha256`" + ` field to catch unexpected content early`,
	}

	memberNotFoundIssue = &Issue{
		id: MemberNotFoundId,
		mdMsg: `
# File not found in the archive!

The archive was downloaded, but it has no entry with the requested path.
Entry names must match exactly, including the leading directory.
npm tarballs put every file under ` + "`package/`" + `.

## Things you can try:
- List the archive contents:
~~~
$ bundler members <url>
~~~

- Update the ` + "`member`" + ` field of the library in bundle.cue`,
	}

	checksumMismatchIssue = &Issue{
		id: ChecksumMismatchId,
		mdMsg: `
# Archive checksum mismatch!

The downloaded archive does not match the pinned SHA256. The output was not
written.

## Things you can try:
- Confirm the ` + "`sha256`" + ` value in bundle.cue belongs to this exact version
- Compute the checksum of a trusted copy:
~~~
$ sha256sum package.tgz
~~~`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

The configuration file could not be read or does not match the schema.

## Things you can try:
- Check the CUE syntax of bundle.cue
- Compare it with a freshly generated file:
~~~
$ bundler config init --output /tmp/bundle.cue
~~~

- Show the effective configuration:
~~~
$ bundler config show
~~~`,
		extLinks: []HttpLink{"https://cuelang.org/docs/"},
	}

	invalidConfigIssue = &Issue{
		id: InvalidConfigId,
		mdMsg: `
# Invalid configuration!

The configuration parsed, but some values are not usable.

## Rules:
- Each library sets either ` + "`url`" + ` or both ` + "`package`" + ` and ` + "`version`" + `
- ` + "`version`" + ` must be a semantic version such as ` + "`14.1.0`" + `
- Library names and output paths must be unique
- ` + "`concurrency`" + ` must be at least 1`,
		extLinks: []HttpLink{"https://semver.org/"},
	}

	sourceNotFoundIssue = &Issue{
		id: SourceNotFoundId,
		mdMsg: `
# Source script not found!

The script named by ` + "`source`" + ` does not exist. Relative paths are
resolved against the directory that holds bundle.cue.

## Things you can try:
- Check the ` + "`source`" + ` field in bundle.cue
- Run the build from the project directory`,
	}

	markerNotFoundIssue = &Issue{
		id: MarkerNotFoundId,
		mdMsg: `
# Marker not found in the source!

The build succeeded, but no library was embedded because the source does not
contain the marker text. The output is the stripped source only.

## Things you can try:
- Add the marker line where the libraries should go:
~~~js
// ================== REQUIRES ==================
~~~

- Or change the ` + "`marker`" + ` field in bundle.cue to match your source`,
	}

	outputWriteFailedIssue = &Issue{
		id: OutputWriteFailedId,
		mdMsg: `
# Could not write the output!

The bundled script or an extracted library could not be written.

## Things you can try:
- Check that the output directory is writable
- Make sure the output path is not an existing directory`,
	}

	issues = map[Id]*Issue{
		downloadFailedIssue.Id():    downloadFailedIssue,
		corruptArchiveIssue.Id():    corruptArchiveIssue,
		memberNotFoundIssue.Id():    memberNotFoundIssue,
		checksumMismatchIssue.Id():  checksumMismatchIssue,
		configLoadFailedIssue.Id():  configLoadFailedIssue,
		invalidConfigIssue.Id():     invalidConfigIssue,
		sourceNotFoundIssue.Id():    sourceNotFoundIssue,
		markerNotFoundIssue.Id():    markerNotFoundIssue,
		outputWriteFailedIssue.Id(): outputWriteFailedIssue,
	}
)

// Values returns every catalog entry ordered by Id.
func Values() []*Issue {
	v := maps.Values(issues)
	slices.SortFunc(v, func(a, b *Issue) int {
		return cmp.Compare(a.id, b.id)
	})
	return v
}

// Get returns the catalog entry for id, or nil.
func Get(id Id) *Issue {
	return issues[id]
}

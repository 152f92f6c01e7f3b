package compiler

import "strings"

// ManualEditSentinel marks normalized defaults a human must replace before
// the endpoint is usable.
const ManualEditSentinel = "changethis"

// substitution is one placeholder rewrite of the normalization pass.
type substitution struct {
	Old string
	New string
}

// substitutions is the fixed rewrite table applied to every URL template and
// parameter value after compilation. Order matters: date placeholders bind
// to the zulu-aware keys, pagination placeholders become literal defaults,
// DN-like placeholders unify onto {queuedn}, and parameters with no sane
// default get the manual-edit sentinel. After this pass the only surviving
// placeholders are the request-binding vocabulary.
var substitutions = []substitution{
	// Date placeholders bound to zulu-aware binding keys.
	{"periodFrom={periodFrom}", "periodFrom={fromZulu}"},
	{"periodTo={periodTo}", "periodTo={toZulu}"},
	{"startDt={startDt}", "startDt={fromZulu}"},
	{"endDt={endDt}", "endDt={toZulu}"},
	{"startDate={startDate}", "startDate={fromZulu}"},
	{"endDate={endDate}", "endDate={toZulu}"},
	{"chartDate={chartDate}", "chartDate={fromZulu}"},

	// Free-text filters default to empty OData string literals.
	{"extension={extension}", "extension=''"},
	{"call={call}", "call=''"},
	{"search={search}", "search=''"},
	{"severity={severity}", "severity='All'"},

	// Pagination defaults. Endpoints that take top/skip through OData
	// parameters keep their {top}/{skip} bindings; these literals only land
	// in function-call URLs that embed them directly.
	{"top={top}", "top=1000"},
	{"skip={skip}", "skip=0"},

	// DN/extension selectors unify onto the single queuedn binding.
	{"queueDns={queueDns}", "queueDns='{queuedn}'"},
	{"queueDnStr={queueDnStr}", "queueDnStr='{queuedn}'"},
	{"ringGroupDns={ringGroupDns}", "ringGroupDns='{queuedn}'"},
	{"agentDnStr={agentDnStr}", "agentDnStr='{queuedn}'"},
	{"{dnNumber}", "'{queuedn}'"},
	{"{number}", "'{queuedn}'"},

	// Interval and call-report knobs with fixed defaults.
	{"waitInterval={waitInterval}", "waitInterval='0:00:0'"},
	{"answerInterval={answerInterval}", "answerInterval='0:00:0'"},
	{"hidePcalls={hidePcalls}", "hidePcalls=false"},
	{"sourceFilter={sourceFilter}", "sourceFilter=''"},
	{"destinationFilter={destinationFilter}", "destinationFilter=''"},
	{"sourceType={sourceType}", "sourceType=0"},
	{"destinationType={destinationType}", "destinationType=0"},
	{"callsType={callsType}", "callsType=0"},
	{"callTimeFilterType={callTimeFilterType}", "callTimeFilterType=0"},
	{"callTimeFilterFrom={callTimeFilterFrom}", "callTimeFilterFrom='0:00:0'"},
	{"callTimeFilterTo={callTimeFilterTo}", "callTimeFilterTo='0:00:0'"},
	{"groupNumber={groupNumber}", "groupNumber='GRP0000'"},
	{"callArea={callArea}", "callArea=0"},
	{"{groupFilter}", "'GRP0000'"},
	{"{callClass}", "0"},
	{"{participantType}", "0"},
	{"{grantPeriodDays}", "30"},
	{"{extensionFilter}", "''"},
	{"{chartBy}", "''"},
	{"{clientTimeZone}", "'Etc/GMT'"},
	{"{includeInternalCalls}", "false"},
	{"{includeQueueCalls}", "false"},
	{"{groupStr}", "''"},

	// No usable default exists; a human must edit these before use.
	{"{resellerId}", "'" + ManualEditSentinel + "'"},
	{"{name}", "'" + ManualEditSentinel + "'"},
	{"{guid}", "'" + ManualEditSentinel + "'"},
	{"{mac}", "'" + ManualEditSentinel + "'"},
	{"{fileName}", "'" + ManualEditSentinel + "'"},
	{"{userId}", "'" + ManualEditSentinel + "'"},
	{"{template}", "'" + ManualEditSentinel + "'"},
}

var normalizeReplacer = buildReplacer()

func buildReplacer() *strings.Replacer {
	pairs := make([]string, 0, len(substitutions)*2)
	for _, s := range substitutions {
		pairs = append(pairs, s.Old, s.New)
	}
	return strings.NewReplacer(pairs...)
}

// NormalizeString applies the substitution table to a single template string.
func NormalizeString(s string) string {
	return normalizeReplacer.Replace(s)
}

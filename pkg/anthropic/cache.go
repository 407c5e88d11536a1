package anthropic

// cacheTTL is the prompt-cache lifetime requested on system blocks. Five
// minutes outlives the gap between consecutive pipeline calls without
// paying the longer-TTL write premium.
const cacheTTL = "5m"

// BuildCachedSystemBlocks wraps a system prompt in a single block marked
// as a prompt-cache breakpoint. Stage prompts repeat verbatim across many
// calls in one run, so all but the first call bill at the cache-read rate.
func BuildCachedSystemBlocks(text string) []SystemBlock {
	return []SystemBlock{{Text: text, CacheControl: &CacheControl{TTL: cacheTTL}}}
}

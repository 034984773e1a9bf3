package escalation

import "regexp"

// ruleGroup is an ordered set of escalation trigger categories. Order is
// preserved in the reason trail, so keep declarations stable.
type ruleGroup struct {
	category string
	patterns []*regexp.Regexp
}

func compile(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(`(?i)` + p)
	}
	return out
}

// mandatoryRules force a human handoff on any match. These encode billing,
// legal/compliance, security, and account-ownership triggers. The legal
// keywords deliberately require action context ("legal action", "filing a
// lawsuit") so a sentence like "legal name" does not trip the rule.
var mandatoryRules = []ruleGroup{
	{"billing", compile(
		`\brefund\b`,
		`\bmoney\s*back\b`,
		`\bcharged\s*(twice|incorrectly|wrong)`,
		`\bduplicate\s*charge`,
		`\bbilling\s*dispute`,
		`\bdiscount\b`,
		`\bcustom\s*(pricing|invoice)`,
		`\bPO\s*number\b`,
		`\bpurchase\s*order\b`,
		`\bcharged\b.{0,40}\b(never\s*(upgraded|signed|agreed|authorized))`,
		`\b(unauthorized|unexpected|surprise)\s*(charge|billing|payment)`,
	)},
	{"legal", compile(
		`\bgdpr\b`,
		`\bdata\s*deletion\b`,
		`\bright\s*to\s*(erasure|be\s*forgotten)`,
		`\bccpa\b`,
		`\bdpa\b`,
		`\bdata\s*processing\s*agreement\b`,
		`\bsoc\s*2\b`,
		`\bcompliance\s*(documentation|report|certification|audit)`,
		`\blawyer\b`,
		`\battorney\b`,
		`\bsue\b`,
		`\bsubpoena\b`,
		`\blegal\s+(action|threat|team|department|counsel|dispute|proceeding|notice)`,
		`\b(threaten|filing|file)\s+(a\s+)?(lawsuit|complaint|dispute)`,
	)},
	{"security", compile(
		`\bdata\s*breach\b`,
		`\bunauthorized\s*access\b`,
		`\bsecurity\s*(bug|vulnerability|concern|issue)\b`,
		`\bsuspicious\s*(activity|login)`,
		`\bpermission.{0,20}bypass\b`,
		`\bguest.{0,30}(edit|modify|change|move|delete).{0,20}(task|card|board|project)`,
	)},
	{"account", compile(
		`\b(workspace|account)\s*deletion\b`,
		`\bownership\s*transfer\b`,
		`\bdeactivated\s*(email|account)\b`,
		`\btransfer\s*ownership\b`,
	)},
}

// advisoryRules flag situations that usually warrant a human but are not
// decisive on their own.
var advisoryRules = []ruleGroup{
	{"human_requested", compile(
		`\breal\s*person\b`,
		`\bhuman\s*(agent)?\b`,
		`\bspeak\s*to\s*(a\s*)?(manager|someone|person)\b`,
		`\btalk\s*to\s*(a\s*)?(manager|someone|person|human)\b`,
		`\btransfer\s*me\b`,
	)},
	{"churn_risk", compile(
		`\bswitch(ing)?\s*to\s*(asana|trello|monday|competitor)\b`,
		`\bcancel\s*(my|our)\s*(account|subscription)\b`,
		`\bmigrat(e|ing)\s*(to|away)\b`,
		`\bconsidering\s*(switch|moving|leaving)\b`,
	)},
	{"angry", compile(
		`\bgarbage\b`, `\bterrible\b`, `\bworst\b`, `\bunacceptable\b`,
		`\buseless\b`, `\bpathetic\b`, `\bdisgrace\b`,
	)},
	{"data_loss", compile(
		`\bdata\s*loss\b`,
		`\blost\s*(work|data|tasks|files|hours|changes|progress)`,
		`\b(tasks?|data|files|work)\s*(disappeared|vanished|gone|missing|deleted)`,
		`\bdisappeared\b`,
		`\bvanished\b`,
	)},
	{"critical_enterprise_bug", compile(
		`\b(critical|blocking|blocks)\s*(bug|issue|problem)\b.{0,40}\b(team|organization|company|workspace|everyone|all\s*users)`,
		`\b(feature|view|page|board|dashboard).{0,30}(not\s*load|stuck\s*on\s*spinner|timeout|unusable)\b.{0,40}\b(team|organization|users|workspace)`,
		`\b(entire|whole)\s*(team|organization|company|workspace)\b.{0,40}(block|impact|affect|stop)`,
	)},
	{"account_lockout", compile(
		`\blocked\s*out\b.{0,40}(admin|workspace|entire|company|organization)`,
		`\b2fa\b.{0,40}(lost|locked|cannot|can't|no\s*access)`,
		`\bauthenticator\b.{0,30}(lost|broken|damaged|stolen)`,
		`\brecovery\s*codes?\b.{0,30}(lost|cannot|can't|missing)`,
	)},
	{"stuck_operations", compile(
		`\b(export|import|sync|upload|download|migration).{0,60}(stuck|hanging|frozen|stalled|processing|pending)`,
		`\b(stuck|hanging|frozen)\s*(for|since|over)\s*\d+\s*(hour|day|week)`,
		`\bmore\s*than\s*\d+\s*(hour|day)`,
		`\b\d+\s*(hour|day|week)s?\b.{0,30}(still|not\s*complete|processing|pending)`,
		`\bstill\s*(show|display|say).{0,20}(processing|pending|waiting|queued)`,
	)},
	{"repeat_contact", compile(
		`\b(second|third|fourth|2nd|3rd|4th)\s*time\b`,
		`\bagain\b`,
		`\bstill\s*not\b`,
		`\balready\s*(contacted|reported|emailed|told|asked)`,
		`\bthree\s*times\b`,
	)},
}

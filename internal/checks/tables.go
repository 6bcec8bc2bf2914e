package checks

// Shared lookup tables for the lexical runners. These identify classes
// of infrastructure, not verdicts; the points they feed come from the
// configuration's weight tables.

// Brand tokens frequently impersonated in phishing campaigns, mapped to
// the registered domains that legitimately carry them.
var brandDomains = map[string][]string{
	"paypal":        {"paypal.com"},
	"apple":         {"apple.com", "icloud.com"},
	"google":        {"google.com", "gmail.com", "youtube.com"},
	"microsoft":     {"microsoft.com", "live.com", "outlook.com", "office.com"},
	"amazon":        {"amazon.com", "aws.amazon.com"},
	"netflix":       {"netflix.com"},
	"facebook":      {"facebook.com", "meta.com"},
	"instagram":     {"instagram.com"},
	"whatsapp":      {"whatsapp.com"},
	"chase":         {"chase.com"},
	"wellsfargo":    {"wellsfargo.com"},
	"bankofamerica": {"bankofamerica.com"},
	"coinbase":      {"coinbase.com"},
	"binance":       {"binance.com"},
	"dhl":           {"dhl.com", "dhl.de"},
	"fedex":         {"fedex.com"},
	"usps":          {"usps.com"},
}

// TLDs with a disproportionate share of abuse in public feeds.
var suspiciousTLDs = map[string]bool{
	"tk": true, "ml": true, "ga": true, "cf": true, "gq": true,
	"top": true, "xyz": true, "club": true, "work": true, "link": true,
	"zip": true, "mov": true, "icu": true, "cam": true, "rest": true,
	"quest": true, "monster": true,
}

// Free hosting suffixes: legitimate platforms, but a brand token on a
// free subdomain is a classic phishing setup.
var freeHostingSuffixes = []string{
	".web.app", ".firebaseapp.com", ".pages.dev", ".workers.dev",
	".netlify.app", ".vercel.app", ".github.io", ".gitlab.io",
	".blogspot.com", ".wordpress.com", ".weebly.com", ".wixsite.com",
	".000webhostapp.com", ".repl.co", ".glitch.me", ".surge.sh",
	".onrender.com", ".herokuapp.com",
}

// URL shortener hosts that hide the true destination.
var shortenerHosts = map[string]bool{
	"bit.ly": true, "tinyurl.com": true, "t.co": true, "goo.gl": true,
	"is.gd": true, "buff.ly": true, "ow.ly": true, "cutt.ly": true,
	"rb.gy": true, "shorturl.at": true, "rebrand.ly": true,
}

// Dynamic DNS suffixes routinely abused for throwaway infrastructure.
var dynamicDNSSuffixes = []string{
	".duckdns.org", ".no-ip.org", ".no-ip.com", ".ddns.net",
	".dyndns.org", ".hopto.org", ".zapto.org", ".serveo.net",
	".ngrok.io", ".ngrok-free.app", ".trycloudflare.com",
}

// Registrars recurring in abuse reports, weighted by the
// registrar_reputation check.
var lowReputationRegistrars = []string{
	"namecheap", "hostinger", "porkbun", "regway", "nicenic",
	"alibaba cloud", "west263", "r01",
}

// Path keywords typical of credential harvesting pages.
var phishingPathKeywords = []string{
	"login", "signin", "sign-in", "verify", "verification", "secure",
	"account", "update", "confirm", "banking", "wallet", "recover",
	"unlock", "suspended", "webscr", "authenticate",
}

// Urgency phrases scanned in page text.
var urgencyPhrases = []string{
	"verify your account", "account has been suspended", "urgent action",
	"immediately", "within 24 hours", "unusual activity", "will be closed",
	"confirm your identity", "limited time", "security alert",
	"click here to verify", "your account will be locked",
}

// Labels around credential inputs scanned in page text.
var credentialTerms = []string{
	"password", "passcode", "social security", "ssn", "card number",
	"cvv", "pin", "security question", "mother's maiden", "one-time code",
	"seed phrase", "recovery phrase", "private key",
}

// Homoglyph substitutions used to fake brand names in hostnames.
var homoglyphs = map[rune]rune{
	'0': 'o', '1': 'l', '3': 'e', '4': 'a', '5': 's', '7': 't',
	'8': 'b', '9': 'g', '@': 'a', '$': 's',
}

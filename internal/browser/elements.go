package browser

import (
	"fmt"
	"strings"

	"browser-pause-agent/internal/entity"
)

const (
	maxTextLen        = 160
	priorityPerTag    = 50
	secondaryPerTag   = 15
	viewportSlackPx   = 400
	defaultScrollStep = 500
)

// elementsScript collects visible interactive elements near the viewport. It
// returns a JSON-friendly array decoded by decodeElements. Input values are
// never read so that secrets typed into the page stay out of the model prompt.
var elementsScript = fmt.Sprintf(`(() => {
	const priority = ['a', 'button', 'input', 'select', 'textarea'];
	const secondary = ['h1', 'h2', 'h3', 'label', 'span', 'div'];
	const qaAttrs = ['data-test-id', 'data-testid', 'data-test', 'data-qa', 'data-cy'];
	const seen = new Set();
	const out = [];

	const selectorFor = (el) => {
		const tag = el.tagName.toLowerCase();
		for (const attr of qaAttrs) {
			const v = el.getAttribute(attr);
			if (v) return tag + '[' + attr + '="' + v + '"]';
		}
		if (el.id && /^[a-zA-Z][\w-]*$/.test(el.id)) return '#' + el.id;
		if (el.name && ['input', 'select', 'textarea', 'button'].includes(tag)) return tag + '[name="' + el.name + '"]';
		const aria = el.getAttribute('aria-label');
		if (aria && aria.length < 80) return '[aria-label="' + aria + '"]';
		if (tag === 'input' && el.type) {
			return el.placeholder
				? 'input[type="' + el.type + '"][placeholder="' + el.placeholder + '"]'
				: 'input[type="' + el.type + '"]';
		}
		const path = [];
		let cur = el;
		for (let depth = 0; cur && cur.tagName && depth < 3; depth++) {
			if (cur.id) { path.unshift('#' + cur.id); break; }
			const idx = Array.from(cur.parentNode ? cur.parentNode.children : []).indexOf(cur);
			path.unshift(cur.tagName.toLowerCase() + ':nth-child(' + (idx + 1) + ')');
			cur = cur.parentElement;
		}
		return path.join(' > ') || tag;
	};

	const labelFor = (el) => {
		if (el.tagName.toLowerCase() === 'input') {
			return el.placeholder || el.getAttribute('aria-label') || el.name || '';
		}
		return (el.innerText || el.textContent || el.getAttribute('aria-label') || '').trim();
	};

	const collect = (tags, limit) => {
		for (const tag of tags) {
			let n = 0;
			for (const el of document.getElementsByTagName(tag)) {
				if (n >= limit) break;
				if (seen.has(el)) continue;
				const r = el.getBoundingClientRect();
				const s = window.getComputedStyle(el);
				if (r.width === 0 || r.height === 0 || s.display === 'none' || s.visibility === 'hidden' || s.opacity === '0') continue;
				if (r.top > window.innerHeight + %[1]d || r.bottom < -%[1]d) continue;
				seen.add(el);
				n++;
				const role = el.getAttribute('role');
				const attrs = {};
				for (const a of ['type', 'name', 'placeholder', 'role', 'href', 'aria-label', 'autocomplete']) {
					const v = el.getAttribute(a);
					if (v) attrs[a] = v.substring(0, 100);
				}
				out.push({
					tag: tag,
					text: labelFor(el).substring(0, %[2]d),
					selector: selectorFor(el),
					attributes: attrs,
					visible: true,
					clickable: ['a', 'button', 'input', 'select'].includes(tag) || role === 'button' || role === 'link' || s.cursor === 'pointer',
					x: Math.round(r.left + r.width / 2),
					y: Math.round(r.top + r.height / 2),
					width: Math.round(r.width),
					height: Math.round(r.height)
				});
			}
		}
	};

	try {
		collect(priority, %[3]d);
		collect(secondary, %[4]d);
	} catch (e) {
		return [];
	}
	return out;
})()`, viewportSlackPx, maxTextLen, priorityPerTag, secondaryPerTag)

// decodeElements converts the script result into entities, skipping anything
// that is not an object.
func decodeElements(raw []any) []entity.Element {
	elements := make([]entity.Element, 0, len(raw))

	for _, item := range raw {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}

		elem := entity.Element{
			Tag:        getString(obj, "tag"),
			Text:       strings.TrimSpace(getString(obj, "text")),
			Selector:   getString(obj, "selector"),
			Visible:    getBool(obj, "visible"),
			Clickable:  getBool(obj, "clickable"),
			Attributes: make(map[string]string),
			BoundingBox: entity.BoundingBox{
				X:      getFloat(obj, "x"),
				Y:      getFloat(obj, "y"),
				Width:  getFloat(obj, "width"),
				Height: getFloat(obj, "height"),
			},
		}

		if attrs, ok := obj["attributes"].(map[string]any); ok {
			for k, v := range attrs {
				if s, ok := v.(string); ok {
					elem.Attributes[k] = s
				}
			}
		}

		elements = append(elements, elem)
	}

	return elements
}

// scrollScript builds the JS for a scroll direction. amount only applies to
// up and down.
func scrollScript(direction string, amount int) (string, error) {
	if amount <= 0 {
		amount = defaultScrollStep
	}

	switch direction {
	case "down":
		return fmt.Sprintf("window.scrollBy(0, %d)", amount), nil
	case "up":
		return fmt.Sprintf("window.scrollBy(0, -%d)", amount), nil
	case "bottom":
		return "window.scrollTo(0, document.body.scrollHeight)", nil
	case "top":
		return "window.scrollTo(0, 0)", nil
	default:
		return "", fmt.Errorf("unknown scroll direction %q", direction)
	}
}

func escapeSelector(selector string) string {
	return strings.ReplaceAll(selector, "'", "\\'")
}

func getString(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}

	return ""
}

func getBool(m map[string]any, key string) bool {
	if v, ok := m[key].(bool); ok {
		return v
	}

	return false
}

func getFloat(m map[string]any, key string) float64 {
	switch v := m[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}

	return 0
}

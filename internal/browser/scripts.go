package browser

const jsHideWebdriver = `Object.defineProperty(navigator, 'webdriver', {get: () => undefined});`

// Status pill plus a fake cursor dot, installed on every document so
// they survive navigations.
const jsInstallOverlay = `(() => {
	if (document.getElementById('nav-status')) return;
	const s = document.createElement('div');
	s.id = 'nav-status';
	s.style.cssText = 'position:fixed;bottom:20px;right:20px;padding:10px 14px;background:rgba(0,0,0,0.65);color:white;font-family:system-ui;font-size:13px;border-radius:8px;box-shadow:0 4px 12px rgba(0,0,0,0.25);z-index:2147483647;backdrop-filter:blur(8px)';
	s.innerText = '●';
	const c = document.createElement('div');
	c.id = 'nav-cursor';
	c.style.cssText = 'position:fixed;left:0;top:0;width:14px;height:14px;margin:-7px 0 0 -7px;border-radius:50%;background:rgba(255,80,80,0.85);box-shadow:0 0 6px rgba(0,0,0,0.4);z-index:2147483647;pointer-events:none;transition:transform 16ms linear';
	const attach = () => {
		if (document.body) { document.body.appendChild(s); document.body.appendChild(c); }
		else document.addEventListener('DOMContentLoaded', attach, {once: true});
	};
	attach();
	window.__navSetStatus = (msg) => {
		const el = document.getElementById('nav-status');
		if (el) el.innerText = msg || '●';
	};
	window.__navMoveCursor = (x, y) => {
		const el = document.getElementById('nav-cursor');
		if (el) el.style.transform = 'translate(' + x + 'px,' + y + 'px)';
	};
})();`

// Builds the two-section page linearization: an index of visible
// interactive elements (tag, label, CSS selector) followed by a plain
// text excerpt. The argument is the byte budget for the excerpt.
const jsExtractText = `(budget) => {
	function isVisible(e) {
		if (!e) return false;
		const style = window.getComputedStyle(e);
		if (style.display === 'none' || style.visibility === 'hidden' || style.opacity === '0') return false;
		const rect = e.getBoundingClientRect();
		return rect.width > 0 && rect.height > 0;
	}

	function getSelector(e) {
		if (e.id) return '#' + CSS.escape(e.id);
		if (e.name) return '[name="' + CSS.escape(e.name) + '"]';
		let sel = e.tagName.toLowerCase();
		if (e.className && typeof e.className === 'string') {
			const classes = e.className.split(/\s+/).filter(c => c.length > 0 && !c.match(/^[\d]/));
			if (classes.length > 0) sel += '.' + classes.map(c => CSS.escape(c)).join('.');
		}
		return sel;
	}

	let output = "--- INTERACTIVE ELEMENTS ---\n";
	const elems = document.querySelectorAll('a, button, input, textarea, select, [role="button"], [role="link"], [onclick], [tabindex]');

	let count = 0;
	for (const el of elems) {
		if (!isVisible(el)) continue;
		if (count > 150) break;
		if (el.hasAttribute && el.hasAttribute('disabled')) continue;

		let text = (el.innerText || el.value || el.getAttribute('aria-label') || "").replace(/\s+/g, ' ').trim();
		if (text.length > 50) text = text.slice(0, 50) + "...";

		if (!text && (el.tagName === 'INPUT' || el.tagName === 'TEXTAREA')) {
			text = "[Input " + (el.placeholder || "") + "]";
		}
		if (!text && el.tagName === 'A') {
			const img = el.querySelector('img');
			if (img) text = img.getAttribute('alt') || "";
		}
		if (!text) continue;

		output += count + '. [' + el.tagName + '] "' + text + '" => ' + getSelector(el) + "\n";
		count++;
	}

	output += "\n--- CONTENT ---\n";
	output += (document.body.innerText || "").replace(/\s+/g, ' ').slice(0, budget);
	return output;
}`

// File: internal/discovery/scan.go
package discovery

// scanScript runs inside the page. It filters elements by visible text,
// synthesizes a unique selector for each survivor by walking up the ancestry
// (an id terminates the walk), and emits descriptors in document order.
// The %s placeholder receives the JSON-encoded scanParams.
const scanScript = `
(() => {
  const params = %s;
  const target = params.text.trim();
  const targetLower = target.toLowerCase();
  const results = [];
  const seen = new Set();

  const isVisible = (el) => {
    const style = window.getComputedStyle(el);
    if (style.display === 'none' || style.visibility === 'hidden' || style.opacity === '0') return false;
    const r = el.getBoundingClientRect();
    return r.width > 0 && r.height > 0;
  };

  const ownText = (el) => {
    const raw = el.innerText || el.textContent || el.value ||
      el.getAttribute('aria-label') || el.getAttribute('alt') ||
      el.getAttribute('placeholder') || '';
    return raw.trim().replace(/\s+/g, ' ');
  };

  const hasUniqueId = (el) =>
    !!el.id && document.querySelectorAll('#' + CSS.escape(el.id)).length === 1;

  const buildSelector = (el) => {
    const parts = [];
    let structuralOnly = true;
    let sharedClasses = false;
    let depth = 0;
    let node = el;
    while (node && node.nodeType === 1 && node.tagName.toLowerCase() !== 'html') {
      depth++;
      if (hasUniqueId(node)) {
        parts.unshift('#' + CSS.escape(node.id));
        structuralOnly = false;
        break;
      }
      let part = node.tagName.toLowerCase();
      const classes = Array.from(node.classList).slice(0, 2);
      if (classes.length > 0) {
        part += classes.map((c) => '.' + CSS.escape(c)).join('');
        structuralOnly = false;
        if (node === el && node.parentElement) {
          const twins = Array.from(node.parentElement.children).filter(
            (s) => s !== node && classes.every((c) => s.classList.contains(c)));
          if (twins.length > 0) sharedClasses = true;
        }
      }
      const parent = node.parentElement;
      if (parent) {
        const sameTag = Array.from(parent.children).filter(
          (s) => s.tagName === node.tagName);
        if (sameTag.length > 1) {
          part += ':nth-of-type(' + (sameTag.indexOf(node) + 1) + ')';
        }
      }
      parts.unshift(part);
      node = parent;
    }
    return { selector: parts.join(' > '), structuralOnly, sharedClasses, depth };
  };

  for (const hint of params.hints) {
    let matched;
    try {
      matched = document.querySelectorAll(hint);
    } catch (e) {
      continue;
    }
    for (const el of matched) {
      if (!isVisible(el)) continue;
      const text = ownText(el);
      if (text === '') continue;
      const exact = text === target;
      if (params.exact ? !exact : !text.toLowerCase().includes(targetLower)) continue;

      const built = buildSelector(el);
      if (built.selector === '' || seen.has(built.selector)) continue;
      if (document.querySelectorAll(built.selector).length !== 1) continue;
      seen.add(built.selector);

      const r = el.getBoundingClientRect();
      results.push({
        selector: built.selector,
        text: text.slice(0, 200),
        tagName: el.tagName.toLowerCase(),
        uniqueId: hasUniqueId(el),
        exact: exact,
        depth: built.depth,
        sharedClasses: built.sharedClasses,
        structuralOnly: built.structuralOnly,
        rect: { x: r.x, y: r.y, width: r.width, height: r.height },
      });
    }
  }
  return results;
})()
`

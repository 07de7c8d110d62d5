package browser

// Element indexes are positions in this selector's result, which
// matches the order automation.Element snapshots use.
const controls = `document.querySelectorAll("input, textarea, button")`

const elementsJS = `(() => {
  const forms = Array.from(document.forms);
  return Array.from(` + controls + `).map((el, i) => ({
    index: i,
    tag: el.tagName.toLowerCase(),
    type: (el.type || "").toLowerCase(),
    name: el.getAttribute("name") || "",
    id: el.id || "",
    role: el.getAttribute("role") || "",
    ariaLabel: el.getAttribute("aria-label") || "",
    placeholder: el.getAttribute("placeholder") || "",
    form: el.form ? forms.indexOf(el.form) : -1,
  }));
})()`

const setValueJS = `((i, v) => {
  const el = ` + controls + `[i];
  if (!el) return "no element at index " + i;
  el.focus();
  el.value = v;
  el.dispatchEvent(new Event("input", { bubbles: true }));
  el.dispatchEvent(new Event("change", { bubbles: true }));
  return "";
})(%d, %s)`

const submitJS = `((i) => {
  const el = ` + controls + `[i];
  if (!el) return "no element at index " + i;
  if (!el.form) return "element " + i + " has no form";
  if (el.form.requestSubmit) { el.form.requestSubmit(); } else { el.form.submit(); }
  return "";
})(%d)`

const clickJS = `((i) => {
  const el = ` + controls + `[i];
  if (!el) return "no element at index " + i;
  el.click();
  return "";
})(%d)`
